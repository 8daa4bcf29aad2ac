package scraper

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

const (
	noAppointmentsMarker = "Der er ingen aktive"
	maxFallbackResults   = 10
	fallbackWhatLength   = 50
)

var (
	fallbackSelectors = []string{
		`div[class*="appointment"]`,
		`div[class*="event"]`,
		`div[class*="aftale"]`,
		`div[class*="calendar"]`,
		`li[class*="appointment"]`,
		`li[class*="event"]`,
		`.appointment-item`,
		`.event-item`,
		`.calendar-item`,
	}

	datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}[./\-]\d{1,2}(?:[./\-]\d{2,4})?`)
	timePattern = regexp.MustCompile(`\d{1,2}[:.]\d{2}(?:\s*-\s*\d{1,2}[:.]\d{2})?`)

	apiListKeys    = []string{"appointments", "aftaler", "events", "calendar", "data", "items", "results"}
	apiDateKeys    = []string{"date", "dato", "start", "startDate", "start_date", "appointment_date"}
	apiWhatKeys    = []string{"title", "description", "what", "beskrivelse", "navn", "name", "subject"}
	apiTimeKeys    = []string{"time", "tid", "start_time", "startTime", "hour"}
	apiCommentKeys = []string{"comment", "kommentar", "note", "notes", "remarks"}
)

// parseAppointments extracts appointments from the appointment page HTML
func parseAppointments(r io.Reader, sourceURL, whatFilter string) ([]*appointment.Appointment, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	appointments := parseTables(doc, sourceURL, whatFilter)
	if len(appointments) == 0 && !strings.Contains(doc.Text(), noAppointmentsMarker) {
		appointments = parseFallback(doc, sourceURL)
	}

	return dedupe(appointments), nil
}

// parseTables reads date, what, time and comment columns from every table.
// Rows without td cells are header rows.
func parseTables(doc *goquery.Document, sourceURL, whatFilter string) []*appointment.Appointment {
	appointments := make([]*appointment.Appointment, 0)

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		if row.Find("td").Length() == 0 {
			return
		}
		if strings.Contains(row.Text(), noAppointmentsMarker) {
			return
		}

		cells := make([]string, 0, 4)
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) < 2 {
			return
		}

		date, what := cells[0], cells[1]
		if len(date) <= 2 || what == "" {
			return
		}
		if whatFilter != "" && !strings.Contains(strings.ToLower(what), strings.ToLower(whatFilter)) {
			return
		}

		appointments = append(appointments,
			appointment.New(date, what, cellAt(cells, 2), cellAt(cells, 3), sourceURL))
	})

	return appointments
}

// parseFallback looks for appointment-like blocks when the page has no table.
// The first selector that yields results wins.
func parseFallback(doc *goquery.Document, sourceURL string) []*appointment.Appointment {
	appointments := make([]*appointment.Appointment, 0)

	for _, selector := range fallbackSelectors {
		doc.Find(selector).Each(func(_ int, el *goquery.Selection) {
			text := strings.Join(strings.Fields(el.Text()), " ")
			if utf8.RuneCountInString(text) <= 10 {
				return
			}

			date := datePattern.FindString(text)
			if date == "" {
				return
			}

			what := text
			if utf8.RuneCountInString(what) > fallbackWhatLength {
				what = truncate(what, fallbackWhatLength) + "..."
			}

			appointments = append(appointments,
				appointment.New(date, what, timePattern.FindString(text), "", sourceURL))
		})

		if len(appointments) > 0 {
			break
		}
	}

	if len(appointments) > maxFallbackResults {
		appointments = appointments[:maxFallbackResults]
	}

	return appointments
}

// parseAPIAppointments maps a JSON list, or a JSON object holding a list under
// one of the common keys, onto appointments.
func parseAPIAppointments(r io.Reader, sourceURL, whatFilter string) ([]*appointment.Appointment, error) {
	var raw interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		for _, key := range apiListKeys {
			if list, ok := v[key].([]interface{}); ok {
				items = list
				break
			}
		}
	}

	appointments := make([]*appointment.Appointment, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		date := firstField(fields, apiDateKeys)
		what := firstField(fields, apiWhatKeys)
		if date == "" && what == "" {
			continue
		}
		if whatFilter != "" && !strings.Contains(strings.ToLower(what), strings.ToLower(whatFilter)) {
			continue
		}

		appointments = append(appointments, appointment.New(
			date, what, firstField(fields, apiTimeKeys), firstField(fields, apiCommentKeys), sourceURL))
	}

	return dedupe(appointments), nil
}

func firstField(fields map[string]interface{}, keys []string) string {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

// truncate cuts s to n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// dedupe drops repeated appointments, keeping page order
func dedupe(appointments []*appointment.Appointment) []*appointment.Appointment {
	seen := make(map[string]bool)
	unique := make([]*appointment.Appointment, 0, len(appointments))
	for _, a := range appointments {
		if !seen[a.ID] {
			seen[a.ID] = true
			unique = append(unique, a)
		}
	}
	return unique
}
