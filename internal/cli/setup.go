package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/sfoweb/internal/config"
	"github.com/pfrederiksen/sfoweb/internal/configflow"
	"github.com/pfrederiksen/sfoweb/internal/entry"
)

var errSetupFailed = errors.New("setup failed")

// errorMessages are the user-facing texts of the flow's error codes
var errorMessages = map[string]string{
	configflow.ErrorCannotConnect: "Failed to connect",
	configflow.ErrorInvalidAuth:   "Invalid authentication",
	configflow.ErrorUnknown:       "Unexpected error",
	configflow.ErrorRequired:      "This field is required",
}

var abortMessages = map[string]string{
	configflow.ReasonAlreadyConfigured: "Account is already configured",
}

func newSetupCmd(a *app) *cobra.Command {
	var (
		username string
		format   string
		quick    bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Add an SFOWeb account",
		Long: `Verify SFOWeb credentials against the portal and store them as a new entry.

The password is read from SFOWEB_PASSWORD or prompted for on stdin. One entry
is allowed per username.

With --quick only a light check runs: both values must be at least three
characters and the login page must be reachable. No login is attempted and no
entry is created.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := OutputFormat(strings.ToLower(format))
			if out != FormatText && out != FormatJSON {
				return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", format)
			}

			if !quick {
				if err := a.openStore(); err != nil {
					return err
				}
			}

			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				username = prompt(in, cmd.ErrOrStderr(), "Username: ")
			}
			password := a.v.GetString(config.KeyPassword)
			if password == "" {
				password = prompt(in, cmd.ErrOrStderr(), "Password: ")
			}

			if quick {
				return a.quickCheck(cmd, username, password, out)
			}

			flow := configflow.New(configflow.NewVerifier(a.credentialFetcher, a.log), a.store, a.log)
			result := flow.StepUser(cmd.Context(), &configflow.UserInput{
				Username: username,
				Password: password,
			})

			return writeFlowResult(cmd.OutOrStdout(), result, out)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "SFOWeb username (prompted if empty)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&quick, "quick", false, "Only check credential format and portal reachability")

	return cmd
}

// QuickCheckResult is the JSON form of setup --quick
type QuickCheckResult struct {
	Username string `json:"username"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

func (a *app) quickCheck(cmd *cobra.Command, username, password string, format OutputFormat) error {
	s := a.scraper(entry.Data{Username: username, Password: password})
	ok, err := s.TestCredentials(cmd.Context())

	result := QuickCheckResult{Username: username, OK: ok && err == nil}
	if err != nil {
		result.Error = err.Error()
	}

	w := cmd.OutOrStdout()
	if format == FormatJSON {
		if err := writeJSON(w, result); err != nil {
			return err
		}
	} else {
		switch {
		case err != nil:
			fmt.Fprintf(w, "%s: %v.\n", errorMessages[configflow.ErrorCannotConnect], err)
		case !ok:
			fmt.Fprintln(w, "Credentials failed the quick check.")
		default:
			fmt.Fprintln(w, "Portal reachable; credentials look valid.")
		}
	}

	if !result.OK {
		return errSetupFailed
	}
	return nil
}

func prompt(in *bufio.Reader, out io.Writer, label string) string {
	fmt.Fprint(out, label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

// writeFlowResult reports a step result. A redisplayed form is an error.
func writeFlowResult(w io.Writer, result *configflow.Result, format OutputFormat) error {
	if format == FormatJSON {
		if err := writeJSON(w, result); err != nil {
			return err
		}
		if result.Type == configflow.ResultForm {
			return errSetupFailed
		}
		return nil
	}

	switch result.Type {
	case configflow.ResultCreateEntry:
		fmt.Fprintf(w, "Created entry %q (%s)\n", result.Title, result.EntryID)
		return nil

	case configflow.ResultAbort:
		msg, ok := abortMessages[result.Reason]
		if !ok {
			msg = result.Reason
		}
		fmt.Fprintln(w, msg+".")
		return nil

	default:
		fields := make([]string, 0, len(result.Errors))
		for field := range result.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			code := result.Errors[field]
			msg, ok := errorMessages[code]
			if !ok {
				msg = code
			}
			if field == configflow.BaseErrorKey {
				fmt.Fprintf(w, "%s.\n", msg)
			} else {
				fmt.Fprintf(w, "%s: %s.\n", field, msg)
			}
		}
		return errSetupFailed
	}
}
