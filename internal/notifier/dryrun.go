package notifier

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

// DryRunNotifier prints what would be sent without delivering anything
type DryRunNotifier struct {
	out io.Writer
}

// NewDryRunNotifier creates a new dry-run notifier writing to out (stdout if nil)
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunNotifier{out: out}
}

// Notify prints the messages that would be sent
func (n *DryRunNotifier) Notify(_ context.Context, account string, appointments []*appointment.Appointment) error {
	for i, a := range appointments {
		msg := FormatMessage(account, a)
		fmt.Fprintf(n.out, "--- Notification %d/%d ---\n", i+1, len(appointments))
		fmt.Fprintln(n.out, msg)
		fmt.Fprintln(n.out)
	}
	return nil
}
