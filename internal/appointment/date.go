package appointment

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var danishMonths = map[string]time.Month{
	"januar":    time.January,
	"februar":   time.February,
	"marts":     time.March,
	"april":     time.April,
	"maj":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"august":    time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// Matches "3. marts 2026", "3 marts 2026" and the abbreviated "3. mar 2026".
var longDatePattern = regexp.MustCompile(`(?i)(\d{1,2})\.?\s+([a-zæøå]+)\.?\s+(\d{4})`)

var numericLayouts = []string{
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	"02-01-06",
	"02.01.06",
}

// ParseDate attempts to parse the portal's date text into a time.Time.
// The portal is Danish, so numeric dates are day-first.
// Returns time.Time{} (zero value) if parsing fails.
func ParseDate(dateText string) time.Time {
	dateText = strings.TrimSpace(dateText)
	if dateText == "" {
		return time.Time{}
	}

	// Weekday prefixes like "Mandag 02-03-2026"
	fields := strings.Fields(dateText)
	candidates := []string{dateText}
	if len(fields) > 1 {
		candidates = append(candidates, fields[len(fields)-1])
	}

	for _, candidate := range candidates {
		for _, layout := range numericLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t
			}
		}
	}

	if m := longDatePattern.FindStringSubmatch(dateText); m != nil {
		month, ok := lookupMonth(m[2])
		if !ok {
			return time.Time{}
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if day < 1 || day > 31 {
			return time.Time{}
		}
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}

	return time.Time{}
}

func lookupMonth(name string) (time.Month, bool) {
	name = strings.ToLower(name)
	if m, ok := danishMonths[name]; ok {
		return m, true
	}
	if len(name) >= 3 {
		for full, m := range danishMonths {
			if strings.HasPrefix(full, name) {
				return m, true
			}
		}
	}
	return 0, false
}

// IsUpcoming checks if the appointment is today or later.
// Returns true if the date cannot be parsed (safer default).
func (a *Appointment) IsUpcoming() bool {
	parsed := ParseDate(a.Date)
	if parsed.IsZero() {
		return true
	}
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return !parsed.Before(today)
}

// Upcoming filters out appointments whose date has passed
func Upcoming(appointments []*Appointment) []*Appointment {
	filtered := make([]*Appointment, 0, len(appointments))
	for _, a := range appointments {
		if a.IsUpcoming() {
			filtered = append(filtered, a)
		}
	}
	return filtered
}
