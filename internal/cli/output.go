package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
	"github.com/pfrederiksen/sfoweb/internal/calendar"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// AccountResult holds the appointments fetched for one entry
type AccountResult struct {
	EntryID      string                     `json:"entry_id"`
	Username     string                     `json:"username"`
	Appointments []*appointment.Appointment `json:"appointments"`
	Error        string                     `json:"error,omitempty"`
}

// OutputResult contains data to be output
type OutputResult struct {
	CheckedAt time.Time        `json:"checked_at"`
	Accounts  []*AccountResult `json:"accounts"`
	Count     int              `json:"count"`
	NewOnly   bool             `json:"new_only,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	case FormatICS:
		return writeICS(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	label := "appointments"
	prefix := ""
	if result.NewOnly {
		label = "new"
		prefix = "NEW: "
	}

	for _, acc := range result.Accounts {
		if len(result.Accounts) > 1 {
			fmt.Fprintf(w, "\n%s:\n", acc.Username)
		}

		if acc.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", acc.Error)
			continue
		}
		if len(acc.Appointments) == 0 {
			if result.NewOnly {
				fmt.Fprintln(w, "No new appointments found.")
			} else {
				fmt.Fprintln(w, "No appointments found.")
			}
			continue
		}

		for _, a := range acc.Appointments {
			fmt.Fprintf(w, "%s%s\n", prefix, a.FullDescription)
			if a.Comment != "" {
				fmt.Fprintf(w, "     %s\n", a.Comment)
			}
			if verbose {
				fmt.Fprintf(w, "     ID: %s\n", a.ID)
				if !a.FirstSeen.IsZero() {
					fmt.Fprintf(w, "     First seen: %s\n", a.FirstSeen.Format(time.RFC3339))
				}
			}
		}
	}

	if result.Count > 0 {
		fmt.Fprintf(w, "\nTotal: %d %s\n", result.Count, label)
	}
	return nil
}

// writeICS outputs every appointment as one calendar
func writeICS(w io.Writer, result *OutputResult) error {
	var all []*appointment.Appointment
	name := "SFOWeb"
	for _, acc := range result.Accounts {
		all = append(all, acc.Appointments...)
	}
	if len(result.Accounts) == 1 {
		name = fmt.Sprintf("SFOWeb (%s)", result.Accounts[0].Username)
	}

	ics := calendar.GenerateBulkICS(all, name)
	if ics == "" {
		return nil
	}
	_, err := io.WriteString(w, ics)
	return err
}
