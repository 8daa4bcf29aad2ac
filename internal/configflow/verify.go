package configflow

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
	"github.com/pfrederiksen/sfoweb/internal/logger"
	"github.com/pfrederiksen/sfoweb/internal/metrics"
)

// Outcome is the classified result of one credential check
type Outcome int

const (
	Success Outcome = iota
	CannotConnect
	InvalidAuth
	Unknown
)

// String returns the outcome's form error code, or "success"
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case CannotConnect:
		return ErrorCannotConnect
	case InvalidAuth:
		return ErrorInvalidAuth
	default:
		return ErrorUnknown
	}
}

// Credentials is the transient username/password pair from the form
type Credentials struct {
	Username string
	Password string
}

// Fetcher is the appointment-fetching capability a credential check exercises
type Fetcher interface {
	FetchAppointments(ctx context.Context) ([]*appointment.Appointment, error)
}

// FetcherFactory builds a Fetcher for one set of credentials
type FetcherFactory func(Credentials) Fetcher

// Classify maps a fetch error onto an outcome. Any error whose text contains
// "timeout" (case-insensitive) is a connectivity failure; every other error is
// treated as rejected credentials, whatever its actual cause.
func Classify(err error) Outcome {
	if err == nil {
		return Success
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return CannotConnect
	}
	return InvalidAuth
}

// Verifier runs single-shot credential checks
type Verifier struct {
	newFetcher FetcherFactory
	logger     *zap.Logger
}

// NewVerifier creates a Verifier that builds its fetchers with newFetcher
func NewVerifier(newFetcher FetcherFactory, log *zap.Logger) *Verifier {
	return &Verifier{
		newFetcher: newFetcher,
		logger:     logger.OrNop(log),
	}
}

// Verify performs exactly one fetch with creds and classifies the result.
// There is no retry; timeouts come from the fetcher or from ctx.
func (v *Verifier) Verify(ctx context.Context, creds Credentials) Outcome {
	fetcher := v.newFetcher(creds)

	_, err := fetcher.FetchAppointments(ctx)
	outcome := Classify(err)
	if err != nil {
		v.logger.Error("Error testing credentials", logger.Fields{
			"username": creds.Username,
			"outcome":  outcome.String(),
			"error":    err,
		}.Zap()...)
	}

	metrics.CredentialChecks.WithLabelValues(outcome.String()).Inc()

	return outcome
}
