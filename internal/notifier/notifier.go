package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

// MaxMessageLength caps formatted messages
const MaxMessageLength = 500

// Notifier defines the interface for delivering appointment notifications
type Notifier interface {
	// Notify delivers notifications for appointments first seen on account
	Notify(ctx context.Context, account string, appointments []*appointment.Appointment) error
}

// Multi fans a notification out to several notifiers. Every notifier is
// tried; the errors are joined.
type Multi []Notifier

// Notify implements Notifier
func (m Multi) Notify(ctx context.Context, account string, appointments []*appointment.Appointment) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, account, appointments); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatMessage formats one appointment as a human-readable message
func FormatMessage(account string, a *appointment.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 New SFO appointment (%s)\n\n", account)
	fmt.Fprintf(&b, "%s\n", a.What)

	if a.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", a.Date)
	}
	if a.Time != "" {
		fmt.Fprintf(&b, "Time: %s\n", a.Time)
	}
	if a.Comment != "" {
		fmt.Fprintf(&b, "Note: %s\n", a.Comment)
	}

	msg := strings.TrimRight(b.String(), "\n")
	if r := []rune(msg); len(r) > MaxMessageLength {
		msg = string(r[:MaxMessageLength-3]) + "..."
	}
	return msg
}
