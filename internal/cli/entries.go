package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/sfoweb/internal/configflow"
	"github.com/pfrederiksen/sfoweb/internal/entry"
)

func newEntriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Manage configured accounts",
	}
	cmd.AddCommand(newEntriesListCmd(a), newEntriesRemoveCmd(a))
	return cmd
}

func newEntriesListCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := OutputFormat(strings.ToLower(format))
			if out != FormatText && out != FormatJSON {
				return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", format)
			}

			if err := a.openStore(); err != nil {
				return err
			}

			entries, err := a.store.List(cmd.Context(), configflow.Domain)
			if err != nil {
				return fmt.Errorf("listing entries: %w", err)
			}

			w := cmd.OutOrStdout()
			if out == FormatJSON {
				return writeJSON(w, entries)
			}

			if len(entries) == 0 {
				fmt.Fprintln(w, "No entries configured.")
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ENTRY ID\tTITLE\tCREATED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.EntryID, e.Title, e.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newEntriesRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <entry-id|username>",
		Short: "Remove an account and its stored password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openStore(); err != nil {
				return err
			}

			e, err := a.findEntry(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if err := a.store.Delete(cmd.Context(), e.EntryID); err != nil {
				return fmt.Errorf("removing entry: %w", err)
			}
			if err := a.snapshots.DeleteSnapshot(e.EntryID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed entry %q (%s)\n", e.Title, e.EntryID)
			return nil
		},
	}
}

// findEntry looks an entry up by id, then by username
func (a *app) findEntry(ctx context.Context, ref string) (*entry.Entry, error) {
	e, err := a.store.Get(ctx, ref)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, entry.ErrNotFound) {
		return nil, fmt.Errorf("loading entry: %w", err)
	}

	entries, err := a.store.List(ctx, configflow.Domain)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	for _, e := range entries {
		if e.UniqueID == ref {
			return e, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", entry.ErrNotFound, ref)
}
