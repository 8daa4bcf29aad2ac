// Package calendar renders appointments as iCalendar (RFC 5545) data.
package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

const prodID = "-//SFOWeb//sfoweb//DA"

// clock matches times like 14:00, 14.00 or kl. 9:30
var clock = regexp.MustCompile(`(\d{1,2})[:.](\d{2})`)

// GenerateICS generates an iCalendar file holding a single appointment.
// Appointments with an unparseable date yield an empty string.
func GenerateICS(a *appointment.Appointment) string {
	return GenerateBulkICS([]*appointment.Appointment{a}, "")
}

// GenerateBulkICS generates one calendar containing every appointment with a
// parseable date. name, if set, becomes the calendar's display name. An
// empty string is returned when no appointment could be rendered.
func GenerateBulkICS(appointments []*appointment.Appointment, name string) string {
	now := time.Now().UTC()

	var events strings.Builder
	count := 0
	for _, a := range appointments {
		if writeEvent(&events, a, now) {
			count++
		}
	}
	if count == 0 {
		return ""
	}

	var ics strings.Builder
	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:" + prodID + "\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	if name != "" {
		ics.WriteString(fmt.Sprintf("X-WR-CALNAME:%s\r\n", escapeICS(name)))
	}
	ics.WriteString(events.String())
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

// writeEvent writes one VEVENT and reports whether it did
func writeEvent(ics *strings.Builder, a *appointment.Appointment, now time.Time) bool {
	day := appointment.ParseDate(a.Date)
	if day.IsZero() {
		return false
	}

	ics.WriteString("BEGIN:VEVENT\r\n")
	ics.WriteString(fmt.Sprintf("UID:%s@sfo-web.aula.dk\r\n", a.ID))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(now)))

	// Floating local times; the portal shows Danish wall-clock times.
	start, end, timed := parseTimes(a.Time, day)
	if timed {
		ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatLocalTime(start)))
		ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatLocalTime(end)))
	} else {
		ics.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", day.Format("20060102")))
		ics.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", day.AddDate(0, 0, 1).Format("20060102")))
	}

	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS("SFO - "+a.What)))

	description := a.FullDescription
	if a.Comment != "" {
		description += "\n\n" + a.Comment
	}
	ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(description)))

	if a.SourceURL != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", a.SourceURL))
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:TRANSPARENT\r\n")
	ics.WriteString("END:VEVENT\r\n")

	return true
}

// parseTimes finds a start and an optional end clock time in text. Without an
// end time the event lasts one hour.
func parseTimes(text string, day time.Time) (start, end time.Time, ok bool) {
	matches := clock.FindAllStringSubmatch(text, 2)
	if len(matches) == 0 {
		return time.Time{}, time.Time{}, false
	}

	at := func(m []string) (time.Time, bool) {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return time.Time{}, false
		}
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC), true
	}

	start, ok = at(matches[0])
	if !ok {
		return time.Time{}, time.Time{}, false
	}

	end = start.Add(time.Hour)
	if len(matches) > 1 {
		if t, valid := at(matches[1]); valid && t.After(start) {
			end = t
		}
	}
	return start, end, true
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// formatLocalTime formats wall-clock fields as an iCalendar floating datetime
func formatLocalTime(t time.Time) string {
	return t.Format("20060102T150405")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
