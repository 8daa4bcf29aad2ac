package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
	"github.com/pfrederiksen/sfoweb/internal/configflow"
	"github.com/pfrederiksen/sfoweb/internal/entry"
	"github.com/pfrederiksen/sfoweb/internal/filter"
)

var errFetchFailed = errors.New("fetching appointments failed")

func newAppointmentsCmd(a *app) *cobra.Command {
	var (
		account  string
		format   string
		order    string
		newOnly  bool
		upcoming bool
		what     []string
		dates    string
		days     string
	)

	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "Fetch and print appointments",
		Long: `Log in with each configured account and print its appointments.

With --new only appointments not seen by a previous --new run are printed, and
the command exits with status 2 when there are any.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := OutputFormat(strings.ToLower(format))
			if out != FormatText && out != FormatJSON && out != FormatICS {
				return fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'ics')", format)
			}
			sortOrder := SortOrder(strings.ToLower(order))
			if sortOrder != SortByDate && sortOrder != SortByWhat {
				return fmt.Errorf("invalid sort: %s (must be 'date' or 'what')", order)
			}

			f, err := buildFilter(what, dates, days)
			if err != nil {
				return err
			}

			if err := a.openStore(); err != nil {
				return err
			}

			entries, err := a.selectEntries(cmd.Context(), account)
			if err != nil {
				return err
			}

			result := &OutputResult{
				CheckedAt: time.Now().UTC(),
				NewOnly:   newOnly,
			}
			failed := 0
			for _, e := range entries {
				acc := a.fetchAccount(cmd.Context(), e, newOnly)
				if acc.Error != "" {
					failed++
				}
				if upcoming {
					acc.Appointments = appointment.Upcoming(acc.Appointments)
				}
				acc.Appointments = f.Apply(acc.Appointments)
				sortAppointments(acc.Appointments, sortOrder)
				result.Count += len(acc.Appointments)
				result.Accounts = append(result.Accounts, acc)
			}

			if err := WriteOutput(cmd.OutOrStdout(), result, out, a.verbose); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}

			switch {
			case failed > 0:
				return fmt.Errorf("%w for %d of %d accounts", errFetchFailed, failed, len(entries))
			case newOnly && result.Count > 0:
				return errNewAppointments
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Only this account (entry id or username)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or ics")
	cmd.Flags().StringVar(&order, "sort", "date", "Sort order: date or what")
	cmd.Flags().BoolVar(&newOnly, "new", false, "Only print appointments not seen before")
	cmd.Flags().BoolVar(&upcoming, "upcoming", false, "Hide appointments in the past")
	cmd.Flags().StringSliceVar(&what, "what", nil, "Only appointments whose kind contains one of these words")
	cmd.Flags().StringVar(&dates, "dates", "", "Date range: 'marts', '01-03-2026..15-03-2026' or a single date")
	cmd.Flags().StringVar(&days, "weekdays", "", "Comma-separated weekdays, e.g. 'mandag,fredag'")

	return cmd
}

func buildFilter(what []string, dates, days string) (*filter.Filter, error) {
	f := filter.New()
	f.What = what

	if dates != "" {
		from, to, err := filter.ParseDateRange(dates)
		if err != nil {
			return nil, err
		}
		f.DateFrom, f.DateTo = from, to
	}
	if days != "" {
		weekdays, err := filter.ParseWeekdays(days)
		if err != nil {
			return nil, err
		}
		f.Weekdays = weekdays
	}

	return f, nil
}

func (a *app) selectEntries(ctx context.Context, ref string) ([]*entry.Entry, error) {
	if ref != "" {
		e, err := a.findEntry(ctx, ref)
		if err != nil {
			return nil, err
		}
		return []*entry.Entry{e}, nil
	}

	entries, err := a.store.List(ctx, configflow.Domain)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries configured, run 'sfoweb setup' first")
	}
	return entries, nil
}

// fetchAccount scrapes one entry. With newOnly the result is diffed against
// the entry's snapshot, which is then replaced.
func (a *app) fetchAccount(ctx context.Context, e *entry.Entry, newOnly bool) *AccountResult {
	acc := &AccountResult{EntryID: e.EntryID, Username: e.Data.Username}

	appointments, err := a.fetcher(e.Data).FetchAppointments(ctx)
	if err != nil {
		a.log.Error("fetching appointments", zap.String("entry_id", e.EntryID), zap.Error(err))
		acc.Error = err.Error()
		return acc
	}
	a.log.Debug("fetched appointments", zap.String("entry_id", e.EntryID), zap.Int("count", len(appointments)))

	if !newOnly {
		acc.Appointments = appointments
		return acc
	}

	previous, err := a.snapshots.LoadSnapshot(e.EntryID)
	if err != nil {
		acc.Error = fmt.Sprintf("loading snapshot: %v", err)
		return acc
	}
	diff := appointment.Diff(previous, appointments)
	if err := a.snapshots.SaveAppointments(appointments, e.EntryID); err != nil {
		acc.Error = fmt.Sprintf("saving snapshot: %v", err)
		return acc
	}

	acc.Appointments = diff.New
	return acc
}
