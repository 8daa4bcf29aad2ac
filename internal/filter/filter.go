// Package filter narrows appointment lists down by date, kind and comment.
//
// Example usage:
//
//	f := filter.New()
//	f.What = []string{"Selvbestemmer"}
//	f.DateFrom, f.DateTo, _ = filter.ParseDateRange("marts")
//
//	matching := f.Apply(appointments)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

// Filter represents appointment filtering criteria
type Filter struct {
	// Date range filtering, inclusive
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// "What" column filtering (case-insensitive substring match)
	What []string `json:"what,omitempty"`

	// Comment filtering (case-insensitive substring match)
	Comments []string `json:"comments,omitempty"`

	// Only these weekdays; empty means every day
	Weekdays []time.Weekday `json:"weekdays,omitempty"`
}

// New creates an empty filter, which matches every appointment
func New() *Filter {
	return &Filter{}
}

// IsEmpty checks if the filter has any active criteria
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.What) == 0 &&
		len(f.Comments) == 0 &&
		len(f.Weekdays) == 0
}

// Matches reports whether a passes every active criterion. Date criteria
// are skipped for appointments whose date cannot be parsed.
func (f *Filter) Matches(a *appointment.Appointment) bool {
	if f.IsEmpty() {
		return true
	}

	date := appointment.ParseDate(a.Date)
	if !date.IsZero() {
		if f.DateFrom != nil && date.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && date.After(*f.DateTo) {
			return false
		}
		if len(f.Weekdays) > 0 && !containsWeekday(f.Weekdays, date.Weekday()) {
			return false
		}
	}

	if len(f.What) > 0 && !containsAny(a.What, f.What) {
		return false
	}
	if len(f.Comments) > 0 && !containsAny(a.Comment, f.Comments) {
		return false
	}

	return true
}

// Apply returns the appointments matching the filter. An empty filter
// returns the input unchanged.
func (f *Filter) Apply(appointments []*appointment.Appointment) []*appointment.Appointment {
	if f.IsEmpty() {
		return appointments
	}

	filtered := make([]*appointment.Appointment, 0, len(appointments))
	for _, a := range appointments {
		if f.Matches(a) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// String returns a human-readable description of the active criteria
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string
	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("02-01-2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("02-01-2006")))
	}
	if len(f.What) > 0 {
		parts = append(parts, fmt.Sprintf("What: %s", strings.Join(f.What, ", ")))
	}
	if len(f.Comments) > 0 {
		parts = append(parts, fmt.Sprintf("Comments: %s", strings.Join(f.Comments, ", ")))
	}
	if len(f.Weekdays) > 0 {
		days := make([]string, len(f.Weekdays))
		for i, d := range f.Weekdays {
			days[i] = d.String()
		}
		parts = append(parts, fmt.Sprintf("Weekdays: %s", strings.Join(days, ", ")))
	}

	return strings.Join(parts, " | ")
}

func containsAny(text string, needles []string) bool {
	text = strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(text, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}
