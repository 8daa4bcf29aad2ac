package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

func TestGenerateICS(t *testing.T) {
	a := appointment.New("12-03-2026", "Selvbestemmer", "14:00 - 16:00", "Hentes af mormor, kl. 16", "https://sfo-web.aula.dk/aftaler")

	ics := GenerateICS(a)

	requiredFields := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//SFOWeb//sfoweb//DA",
		"BEGIN:VEVENT",
		"UID:" + a.ID + "@sfo-web.aula.dk",
		"DTSTAMP:",
		"DTSTART:20260312T140000\r\n",
		"DTEND:20260312T160000\r\n",
		"SUMMARY:SFO - Selvbestemmer",
		"DESCRIPTION:12-03-2026 - Selvbestemmer - 14:00 - 16:00\\n\\nHentes af mormor\\, kl. 16",
		"URL:https://sfo-web.aula.dk/aftaler",
		"STATUS:CONFIRMED",
		"END:VEVENT",
		"END:VCALENDAR",
	}

	for _, field := range requiredFields {
		if !strings.Contains(ics, field) {
			t.Errorf("ICS missing required field: %q\n%s", field, ics)
		}
	}

	if strings.Contains(ics, "X-WR-CALNAME:") {
		t.Error("single-appointment ICS should not have a calendar name")
	}
}

func TestGenerateICS_UnparseableDate(t *testing.T) {
	a := appointment.New("i morgen", "Selvbestemmer", "14:00", "", "")

	if ics := GenerateICS(a); ics != "" {
		t.Errorf("expected empty ICS for unparseable date, got:\n%s", ics)
	}
}

func TestGenerateICS_AllDay(t *testing.T) {
	a := appointment.New("12-03-2026", "Fri", "", "", "")

	ics := GenerateICS(a)

	for _, want := range []string{"DTSTART;VALUE=DATE:20260312", "DTEND;VALUE=DATE:20260313"} {
		if !strings.Contains(ics, want) {
			t.Errorf("ICS missing %q:\n%s", want, ics)
		}
	}
}

func TestGenerateBulkICS(t *testing.T) {
	appointments := []*appointment.Appointment{
		appointment.New("10-03-2026", "Selvbestemmer", "14:00", "", ""),
		appointment.New("ukendt", "Skipped", "", "", ""),
		appointment.New("20-03-2026", "Går selv hjem", "15.30", "", ""),
	}

	ics := GenerateBulkICS(appointments, "SFO; testuser")

	if got := strings.Count(ics, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("got %d events, want 2", got)
	}
	if strings.Count(ics, "BEGIN:VCALENDAR") != 1 {
		t.Error("expected a single calendar")
	}
	if !strings.Contains(ics, "X-WR-CALNAME:SFO\\; testuser") {
		t.Error("missing escaped calendar name")
	}
	if !strings.Contains(ics, "DTSTART:20260320T153000") || !strings.Contains(ics, "DTEND:20260320T163000") {
		t.Errorf("expected one-hour event from 15.30:\n%s", ics)
	}
}

func TestGenerateBulkICS_Empty(t *testing.T) {
	if ics := GenerateBulkICS(nil, "name"); ics != "" {
		t.Errorf("expected empty string, got %q", ics)
	}
}

func TestParseTimes(t *testing.T) {
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		text      string
		wantOK    bool
		wantStart string
		wantEnd   string
	}{
		{"14:00 - 16:00", true, "20260312T140000", "20260312T160000"},
		{"kl. 9.30", true, "20260312T093000", "20260312T103000"},
		{"16:00 - 14:00", true, "20260312T160000", "20260312T170000"},
		{"25:00", false, "", ""},
		{"hele dagen", false, "", ""},
		{"", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			start, end, ok := parseTimes(tt.text, day)
			if ok != tt.wantOK {
				t.Fatalf("parseTimes(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got := formatLocalTime(start); got != tt.wantStart {
				t.Errorf("start = %s, want %s", got, tt.wantStart)
			}
			if got := formatLocalTime(end); got != tt.wantEnd {
				t.Errorf("end = %s, want %s", got, tt.wantEnd)
			}
		})
	}
}

func TestFormatICSTime(t *testing.T) {
	testTime := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	formatted := formatICSTime(testTime)

	expected := "20260315T143000Z"
	if formatted != expected {
		t.Errorf("formatICSTime() = %q, want %q", formatted, expected)
	}
}

func TestEscapeICS(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Simple text", "Simple text"},
		{"Text with, comma", "Text with\\, comma"},
		{"Text with; semicolon", "Text with\\; semicolon"},
		{"Text with\\backslash", "Text with\\\\backslash"},
		{"Text with\nnewline", "Text with\\nnewline"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := escapeICS(tt.input)
			if got != tt.expected {
				t.Errorf("escapeICS(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
