package appointment

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"time"
)

// Appointment represents one row of the SFOWeb appointment table
type Appointment struct {
	ID              string    `json:"id"`
	Date            string    `json:"date"`
	What            string    `json:"what"`
	Time            string    `json:"time"`
	Comment         string    `json:"comment"`
	FullDescription string    `json:"full_description"`
	SourceURL       string    `json:"source_url,omitempty"`
	FirstSeen       time.Time `json:"first_seen"`
}

// GenerateID creates a deterministic ID for an appointment based on stable fields
func GenerateID(date, what, timeText string) string {
	h := sha1.New()
	h.Write([]byte(date + "|" + what + "|" + timeText))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Describe joins the non-empty parts as "date - what - time"
func Describe(date, what, timeText string) string {
	return strings.Trim(fmt.Sprintf("%s - %s - %s", date, what, timeText), " -")
}

// New creates an Appointment with ID, FullDescription and FirstSeen populated
func New(date, what, timeText, comment, sourceURL string) *Appointment {
	date = strings.TrimSpace(date)
	what = strings.TrimSpace(what)
	timeText = strings.TrimSpace(timeText)

	return &Appointment{
		ID:              GenerateID(date, what, timeText),
		Date:            date,
		What:            what,
		Time:            timeText,
		Comment:         strings.TrimSpace(comment),
		FullDescription: Describe(date, what, timeText),
		SourceURL:       sourceURL,
		FirstSeen:       time.Now().UTC(),
	}
}

// Attributes returns the appointment as a flat attribute map, the shape sensors expose
func (a *Appointment) Attributes() map[string]string {
	return map[string]string{
		"date":             a.Date,
		"what":             a.What,
		"time":             a.Time,
		"comment":          a.Comment,
		"full_description": a.FullDescription,
	}
}
