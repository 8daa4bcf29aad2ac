package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

var months = map[string]time.Month{
	"jan": time.January, "januar": time.January, "january": time.January,
	"feb": time.February, "februar": time.February, "february": time.February,
	"mar": time.March, "marts": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"maj": time.May, "may": time.May,
	"jun": time.June, "juni": time.June, "june": time.June,
	"jul": time.July, "juli": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"okt": time.October, "oct": time.October, "oktober": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var weekdays = map[string]time.Weekday{
	"man": time.Monday, "mandag": time.Monday, "mon": time.Monday, "monday": time.Monday,
	"tir": time.Tuesday, "tirsdag": time.Tuesday, "tue": time.Tuesday, "tuesday": time.Tuesday,
	"ons": time.Wednesday, "onsdag": time.Wednesday, "wed": time.Wednesday, "wednesday": time.Wednesday,
	"tor": time.Thursday, "torsdag": time.Thursday, "thu": time.Thursday, "thursday": time.Thursday,
	"fre": time.Friday, "fredag": time.Friday, "fri": time.Friday, "friday": time.Friday,
	"lør": time.Saturday, "lørdag": time.Saturday, "sat": time.Saturday, "saturday": time.Saturday,
	"søn": time.Sunday, "søndag": time.Sunday, "sun": time.Sunday, "sunday": time.Sunday,
}

// ParseDateRange parses a date range string into start and end times.
//
// Supported formats:
//   - "marts" or "March" - the whole month, this year or next if it has passed
//   - "01-03-2026..15-03-2026" - any dates the portal uses, either side may be empty
//   - "01-03-2026" - a single day
//
// Start times are at 00:00:00 and end times at 23:59:59 UTC.
func ParseDateRange(input string) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}

	if month, ok := months[strings.ToLower(input)]; ok {
		year := yearForMonth(month, time.Now())
		from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year, month+1, 0, 23, 59, 59, 0, time.UTC)
		return &from, &to, nil
	}

	fromText, toText, isRange := strings.Cut(input, "..")
	if !isRange {
		toText = fromText
	}

	var from, to *time.Time
	if s := strings.TrimSpace(fromText); s != "" {
		d := appointment.ParseDate(s)
		if d.IsZero() {
			return nil, nil, fmt.Errorf("invalid date: %s", s)
		}
		from = &d
	}
	if s := strings.TrimSpace(toText); s != "" {
		d := appointment.ParseDate(s)
		if d.IsZero() {
			return nil, nil, fmt.Errorf("invalid date: %s", s)
		}
		end := d.Add(24*time.Hour - time.Second)
		to = &end
	}

	if from == nil && to == nil {
		return nil, nil, fmt.Errorf("invalid date range format. Use 'marts', '01-03-2026..15-03-2026' or '01-03-2026'")
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("start date must be before end date")
	}

	return from, to, nil
}

// ParseWeekdays parses comma-separated weekday names in Danish or English
func ParseWeekdays(input string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(input, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		d, ok := weekdays[name]
		if !ok {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
		if !containsWeekday(days, d) {
			days = append(days, d)
		}
	}
	return days, nil
}

// yearForMonth returns now's year, or the next one if month has passed
func yearForMonth(month time.Month, now time.Time) int {
	year := now.Year()
	if month < now.Month() {
		year++
	}
	return year
}
