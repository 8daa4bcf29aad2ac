package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
	"github.com/pfrederiksen/sfoweb/internal/logger"
)

// LogNotifier writes one structured log line per new appointment
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.OrNop(log)}
}

// Notify implements Notifier
func (n *LogNotifier) Notify(_ context.Context, account string, appointments []*appointment.Appointment) error {
	for _, a := range appointments {
		n.logger.Info("new appointment",
			zap.String("account", account),
			zap.String("id", a.ID),
			zap.String("date", a.Date),
			zap.String("what", a.What),
			zap.String("time", a.Time),
		)
	}
	return nil
}
