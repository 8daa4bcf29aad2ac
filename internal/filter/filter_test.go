package filter

import (
	"testing"
	"time"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestFilter_Matches(t *testing.T) {
	// Tuesday 10 March 2026
	a := appointment.New("10-03-2026", "Selvbestemmer", "14:00", "Hentes af mormor", "")
	undated := appointment.New("snart", "Selvbestemmer", "", "", "")

	tests := []struct {
		name   string
		filter *Filter
		appt   *appointment.Appointment
		want   bool
	}{
		{"empty filter", New(), a, true},
		{"what matches", &Filter{What: []string{"selvbestemmer"}}, a, true},
		{"what any of", &Filter{What: []string{"Fri", "bestemmer"}}, a, true},
		{"what mismatch", &Filter{What: []string{"Fri"}}, a, false},
		{"comment matches", &Filter{Comments: []string{"MORMOR"}}, a, true},
		{"comment mismatch", &Filter{Comments: []string{"farmor"}}, a, false},
		{"inside range", &Filter{DateFrom: date(2026, 3, 1), DateTo: date(2026, 3, 31)}, a, true},
		{"before range", &Filter{DateFrom: date(2026, 3, 11)}, a, false},
		{"after range", &Filter{DateTo: date(2026, 3, 9)}, a, false},
		{"range inclusive", &Filter{DateFrom: date(2026, 3, 10), DateTo: date(2026, 3, 10)}, a, true},
		{"weekday matches", &Filter{Weekdays: []time.Weekday{time.Tuesday}}, a, true},
		{"weekday mismatch", &Filter{Weekdays: []time.Weekday{time.Friday}}, a, false},
		{"undated ignores date criteria", &Filter{DateFrom: date(2030, 1, 1)}, undated, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.appt); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	appointments := []*appointment.Appointment{
		appointment.New("10-03-2026", "Selvbestemmer", "14:00", "", ""),
		appointment.New("11-03-2026", "Fri", "", "", ""),
		appointment.New("12-03-2026", "Selvbestemmer", "15:00", "", ""),
	}

	if got := New().Apply(appointments); len(got) != 3 {
		t.Errorf("empty filter returned %d, want 3", len(got))
	}

	f := &Filter{What: []string{"Selvbestemmer"}}
	got := f.Apply(appointments)
	if len(got) != 2 {
		t.Fatalf("Apply() returned %d, want 2", len(got))
	}
	if got[1].Date != "12-03-2026" {
		t.Errorf("order not kept: %s", got[1].Date)
	}
}

func TestFilter_String(t *testing.T) {
	if got := New().String(); got != "No active filters" {
		t.Errorf("String() = %q", got)
	}

	f := &Filter{
		DateFrom: date(2026, 3, 1),
		What:     []string{"Selvbestemmer"},
		Weekdays: []time.Weekday{time.Monday, time.Friday},
	}
	want := "From: 01-03-2026 | What: Selvbestemmer | Weekdays: Monday, Friday"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
