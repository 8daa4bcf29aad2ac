package filter

import (
	"testing"
	"time"
)

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		input    string
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{input: "01-03-2026..15-03-2026", wantFrom: "2026-03-01T00:00:00Z", wantTo: "2026-03-15T23:59:59Z"},
		{input: "2026-03-01 .. 2026-03-15", wantFrom: "2026-03-01T00:00:00Z", wantTo: "2026-03-15T23:59:59Z"},
		{input: "01-03-2026..", wantFrom: "2026-03-01T00:00:00Z"},
		{input: "..15-03-2026", wantTo: "2026-03-15T23:59:59Z"},
		{input: "10-03-2026", wantFrom: "2026-03-10T00:00:00Z", wantTo: "2026-03-10T23:59:59Z"},
		{input: "15-03-2026..01-03-2026", wantErr: true},
		{input: "i morgen", wantErr: true},
		{input: "..", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			from, to, err := ParseDateRange(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDateRange(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			check := func(label string, got *time.Time, want string) {
				if want == "" {
					if got != nil {
						t.Errorf("%s = %v, want nil", label, got)
					}
					return
				}
				if got == nil || got.Format(time.RFC3339) != want {
					t.Errorf("%s = %v, want %s", label, got, want)
				}
			}
			check("from", from, tt.wantFrom)
			check("to", to, tt.wantTo)
		})
	}
}

func TestParseDateRange_Month(t *testing.T) {
	for _, input := range []string{"marts", "March", "MAR"} {
		from, to, err := ParseDateRange(input)
		if err != nil {
			t.Fatalf("ParseDateRange(%q) error = %v", input, err)
		}
		if from.Month() != time.March || from.Day() != 1 {
			t.Errorf("from = %v, want 1 March", from)
		}
		if to.Month() != time.March || to.Day() != 31 {
			t.Errorf("to = %v, want 31 March", to)
		}
	}
}

func TestYearForMonth(t *testing.T) {
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	if got := yearForMonth(time.March, now); got != 2027 {
		t.Errorf("past month: got %d, want 2027", got)
	}
	if got := yearForMonth(time.June, now); got != 2026 {
		t.Errorf("current month: got %d, want 2026", got)
	}
	if got := yearForMonth(time.December, now); got != 2026 {
		t.Errorf("future month: got %d, want 2026", got)
	}
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays("mandag, Fri,fredag")
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || days[0] != time.Monday || days[1] != time.Friday {
		t.Errorf("ParseWeekdays() = %v", days)
	}

	if _, err := ParseWeekdays("someday"); err == nil {
		t.Error("expected error for unknown weekday")
	}
}
