package configflow

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pfrederiksen/sfoweb/internal/entry"
	"github.com/pfrederiksen/sfoweb/internal/logger"
	"github.com/pfrederiksen/sfoweb/internal/metrics"
)

// Domain is the integration's domain; entries are registered under it.
const Domain = "sfoweb"

const StepUser = "user"

// Form error codes
const (
	ErrorCannotConnect = "cannot_connect"
	ErrorInvalidAuth   = "invalid_auth"
	ErrorUnknown       = "unknown"
	ErrorRequired      = "required"

	// BaseErrorKey holds form-level errors, as opposed to per-field ones.
	BaseErrorKey = "base"

	ReasonAlreadyConfigured = "already_configured"
)

// ResultType is what the front end should do with a step result
type ResultType string

const (
	ResultForm        ResultType = "form"
	ResultCreateEntry ResultType = "create_entry"
	ResultAbort       ResultType = "abort"
)

// FormField describes one input of the step's form
type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// UserSchema is the form shown by the user step
var UserSchema = []FormField{
	{Name: "username", Type: "string", Required: true},
	{Name: "password", Type: "password", Required: true},
}

// UserInput is a submission of the user step
type UserInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Result is the outcome of a step
type Result struct {
	Type    ResultType        `json:"type"`
	StepID  string            `json:"step_id,omitempty"`
	Schema  []FormField       `json:"data_schema,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	EntryID string            `json:"entry_id,omitempty"`
	Title   string            `json:"title,omitempty"`
	Data    *entry.Data       `json:"-"`
	Reason  string            `json:"reason,omitempty"`
}

// Registry is the host's config entry registry
type Registry interface {
	HasUniqueID(ctx context.Context, domain, uniqueID string) (bool, error)
	CreateEntry(ctx context.Context, e *entry.Entry) error
}

// Flow drives the user step. It holds no per-submission state and may be
// shared between concurrent submissions.
type Flow struct {
	verifier *Verifier
	registry Registry
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates a Flow
func New(verifier *Verifier, registry Registry, log *zap.Logger) *Flow {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Flow{
		verifier: verifier,
		registry: registry,
		validate: v,
		logger:   logger.OrNop(log),
	}
}

// Title is the entry title for a username
func Title(username string) string {
	return fmt.Sprintf("SFOWeb (%s)", username)
}

// StepUser handles the user step. A nil input shows the empty form.
func (f *Flow) StepUser(ctx context.Context, input *UserInput) (result *Result) {
	if input == nil {
		return showForm(nil)
	}

	defer func() {
		if r := recover(); r != nil {
			result = f.unknown(fmt.Errorf("panic: %v", r))
		}
	}()

	if errs := f.validateInput(input); len(errs) > 0 {
		return showForm(errs)
	}

	creds := Credentials{Username: input.Username, Password: input.Password}
	switch outcome := f.verifier.Verify(ctx, creds); outcome {
	case Success:
	case CannotConnect, InvalidAuth:
		return showForm(map[string]string{BaseErrorKey: outcome.String()})
	default:
		return f.unknown(fmt.Errorf("unexpected outcome %d", outcome))
	}

	exists, err := f.registry.HasUniqueID(ctx, Domain, input.Username)
	if err != nil {
		return f.unknown(fmt.Errorf("checking unique id: %w", err))
	}
	if exists {
		return abort(ReasonAlreadyConfigured)
	}

	e := entry.New(Domain, input.Username, Title(input.Username), entry.Data{
		Username: input.Username,
		Password: input.Password,
	})
	if err := f.registry.CreateEntry(ctx, e); err != nil {
		if errors.Is(err, entry.ErrAlreadyConfigured) {
			return abort(ReasonAlreadyConfigured)
		}
		return f.unknown(fmt.Errorf("creating entry: %w", err))
	}

	f.logger.Info("entry created",
		zap.String("entry_id", e.EntryID),
		zap.String("title", e.Title),
	)

	return &Result{
		Type:    ResultCreateEntry,
		StepID:  StepUser,
		EntryID: e.EntryID,
		Title:   e.Title,
		Data:    &e.Data,
	}
}

// validateInput checks the form schema and returns per-field error codes
func (f *Flow) validateInput(input *UserInput) map[string]string {
	err := f.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{BaseErrorKey: ErrorUnknown}
	}

	errs := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs[fe.Field()] = fe.Tag()
	}
	return errs
}

// unknown logs an orchestration failure and redisplays the form
func (f *Flow) unknown(err error) *Result {
	f.logger.Error("Unexpected exception", zap.Error(err))
	metrics.CredentialChecks.WithLabelValues(ErrorUnknown).Inc()
	return showForm(map[string]string{BaseErrorKey: ErrorUnknown})
}

func showForm(errs map[string]string) *Result {
	if errs == nil {
		errs = map[string]string{}
	}
	return &Result{
		Type:   ResultForm,
		StepID: StepUser,
		Schema: UserSchema,
		Errors: errs,
	}
}

func abort(reason string) *Result {
	return &Result{
		Type:   ResultAbort,
		StepID: StepUser,
		Reason: reason,
	}
}
