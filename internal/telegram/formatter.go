package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

// FormatAppointment formats a new appointment as an HTML Telegram message
func FormatAppointment(account string, a *appointment.Appointment) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("📅 <b>New SFO appointment</b> (%s)\n\n", html.EscapeString(account)))
	msg.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(a.What)))

	if a.Date != "" {
		msg.WriteString(fmt.Sprintf("🗓 %s\n", html.EscapeString(a.Date)))
	}
	if a.Time != "" {
		msg.WriteString(fmt.Sprintf("🕑 %s\n", html.EscapeString(a.Time)))
	}
	if a.Comment != "" {
		msg.WriteString(fmt.Sprintf("\n<i>%s</i>\n", html.EscapeString(a.Comment)))
	}

	return strings.TrimRight(msg.String(), "\n")
}

// Notifier sends one message per new appointment
type Notifier struct {
	client *Client
}

func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Notify implements notifier.Notifier
func (n *Notifier) Notify(ctx context.Context, account string, appointments []*appointment.Appointment) error {
	for _, a := range appointments {
		if err := n.client.SendMessage(ctx, FormatAppointment(account, a)); err != nil {
			return fmt.Errorf("sending appointment %s: %w", a.ID, err)
		}
	}
	return nil
}
