package configflow

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
	"github.com/pfrederiksen/sfoweb/internal/crypto"
	"github.com/pfrederiksen/sfoweb/internal/entry"
)

type fakeFetcher struct {
	err   error
	panic bool
	calls *int
}

func (f fakeFetcher) FetchAppointments(context.Context) ([]*appointment.Appointment, error) {
	if f.calls != nil {
		*f.calls++
	}
	if f.panic {
		panic("scraper blew up")
	}
	if f.err != nil {
		return nil, f.err
	}
	return []*appointment.Appointment{}, nil
}

// fetcherFor returns a factory whose fetchers fail with err (nil for success)
func fetcherFor(err error, calls *int) FetcherFactory {
	return func(Credentials) Fetcher {
		return fakeFetcher{err: err, calls: calls}
	}
}

type memRegistry struct {
	mu        sync.Mutex
	entries   map[string]*entry.Entry
	hasErr    error
	createErr error
}

func newMemRegistry() *memRegistry {
	return &memRegistry{entries: make(map[string]*entry.Entry)}
}

func (r *memRegistry) HasUniqueID(_ context.Context, domain, uniqueID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasErr != nil {
		return false, r.hasErr
	}
	_, ok := r.entries[domain+"|"+uniqueID]
	return ok, nil
}

func (r *memRegistry) CreateEntry(_ context.Context, e *entry.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	key := e.Domain + "|" + e.UniqueID
	if _, ok := r.entries[key]; ok {
		return entry.ErrAlreadyConfigured
	}
	r.entries[key] = e
	return nil
}

func newTestFlow(factory FetcherFactory, registry Registry) (*Flow, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	return New(NewVerifier(factory, log), registry, log), logs
}

func TestStepUser_ShowsEmptyForm(t *testing.T) {
	flow, _ := newTestFlow(fetcherFor(nil, nil), newMemRegistry())

	result := flow.StepUser(context.Background(), nil)

	assert.Equal(t, ResultForm, result.Type)
	assert.Equal(t, StepUser, result.StepID)
	assert.Empty(t, result.Errors)
	assert.Equal(t, UserSchema, result.Schema)
}

func TestStepUser_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		fetchErr  error
		wantType  ResultType
		wantError string
		wantTitle string
	}{
		{
			name:      "rejected credentials",
			password:  "wrongpass",
			fetchErr:  errors.New("401 Unauthorized"),
			wantType:  ResultForm,
			wantError: ErrorInvalidAuth,
		},
		{
			name:      "connection timeout",
			password:  "correctpass",
			fetchErr:  errors.New("Connection timeout after 30s"),
			wantType:  ResultForm,
			wantError: ErrorCannotConnect,
		},
		{
			name:      "success",
			password:  "correctpass",
			wantType:  ResultCreateEntry,
			wantTitle: "SFOWeb (testuser)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newMemRegistry()
			flow, _ := newTestFlow(fetcherFor(tt.fetchErr, nil), registry)

			result := flow.StepUser(context.Background(), &UserInput{Username: "testuser", Password: tt.password})

			require.Equal(t, tt.wantType, result.Type)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, result.Errors[BaseErrorKey])
				assert.Empty(t, registry.entries, "no record may be created")
				return
			}

			assert.Empty(t, result.Errors)
			assert.Equal(t, tt.wantTitle, result.Title)
			require.Len(t, registry.entries, 1)

			created := registry.entries[Domain+"|testuser"]
			require.NotNil(t, created)
			assert.Equal(t, result.EntryID, created.EntryID)
			assert.Equal(t, "testuser", created.Data.Username)
			assert.Equal(t, tt.password, created.Data.Password)
		})
	}
}

func TestStepUser_TimeoutAnywhereAnyCase(t *testing.T) {
	messages := []string{
		"TIMEOUT",
		"read tcp: i/o timeout",
		"context deadline exceeded (Client.Timeout exceeded while awaiting headers)",
		"gateway Timeout",
	}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			registry := newMemRegistry()
			flow, _ := newTestFlow(fetcherFor(errors.New(msg), nil), registry)

			result := flow.StepUser(context.Background(), &UserInput{Username: "u", Password: "p"})

			assert.Equal(t, ErrorCannotConnect, result.Errors[BaseErrorKey])
			assert.Empty(t, registry.entries)
		})
	}
}

func TestStepUser_NonTimeoutErrorsAreInvalidAuth(t *testing.T) {
	messages := []string{
		"unexpected status code: 500",
		"parsing HTML: unexpected EOF",
		"connection reset by peer",
		"context deadline exceeded",
		"",
	}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			flow, _ := newTestFlow(fetcherFor(errors.New(msg), nil), newMemRegistry())

			result := flow.StepUser(context.Background(), &UserInput{Username: "u", Password: "p"})

			assert.Equal(t, ErrorInvalidAuth, result.Errors[BaseErrorKey])
		})
	}
}

func TestStepUser_DuplicateUsernameAborts(t *testing.T) {
	registry := newMemRegistry()
	flow, _ := newTestFlow(fetcherFor(nil, nil), registry)
	input := &UserInput{Username: "testuser", Password: "correctpass"}

	first := flow.StepUser(context.Background(), input)
	require.Equal(t, ResultCreateEntry, first.Type)

	second := flow.StepUser(context.Background(), input)
	assert.Equal(t, ResultAbort, second.Type)
	assert.Equal(t, ReasonAlreadyConfigured, second.Reason)
	assert.Len(t, registry.entries, 1)
}

func TestStepUser_CreateRaceAborts(t *testing.T) {
	registry := newMemRegistry()
	registry.createErr = entry.ErrAlreadyConfigured
	flow, _ := newTestFlow(fetcherFor(nil, nil), registry)

	result := flow.StepUser(context.Background(), &UserInput{Username: "testuser", Password: "pw"})

	assert.Equal(t, ResultAbort, result.Type)
	assert.Equal(t, ReasonAlreadyConfigured, result.Reason)
}

func TestStepUser_OrchestrationFailuresAreUnknown(t *testing.T) {
	tests := []struct {
		name     string
		registry func() *memRegistry
		factory  FetcherFactory
	}{
		{
			name: "registry lookup fails",
			registry: func() *memRegistry {
				r := newMemRegistry()
				r.hasErr = errors.New("database is locked")
				return r
			},
			factory: fetcherFor(nil, nil),
		},
		{
			name: "registry insert fails",
			registry: func() *memRegistry {
				r := newMemRegistry()
				r.createErr = errors.New("disk I/O error")
				return r
			},
			factory: fetcherFor(nil, nil),
		},
		{
			name:     "fetcher panics",
			registry: newMemRegistry,
			factory: func(Credentials) Fetcher {
				return fakeFetcher{panic: true}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, logs := newTestFlow(tt.factory, tt.registry())

			result := flow.StepUser(context.Background(), &UserInput{Username: "testuser", Password: "pw"})

			assert.Equal(t, ResultForm, result.Type)
			assert.Equal(t, ErrorUnknown, result.Errors[BaseErrorKey])
			assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
		})
	}
}

func TestStepUser_MissingFields(t *testing.T) {
	calls := 0
	flow, _ := newTestFlow(fetcherFor(nil, &calls), newMemRegistry())

	result := flow.StepUser(context.Background(), &UserInput{Username: "testuser"})

	assert.Equal(t, ResultForm, result.Type)
	assert.Equal(t, map[string]string{"password": ErrorRequired}, result.Errors)
	assert.Zero(t, calls, "no network call for an incomplete form")
}

func TestStepUser_OneCallNoRetry(t *testing.T) {
	calls := 0
	flow, _ := newTestFlow(fetcherFor(errors.New("timeout"), &calls), newMemRegistry())

	flow.StepUser(context.Background(), &UserInput{Username: "u", Password: "p"})
	assert.Equal(t, 1, calls)

	// The user may resubmit indefinitely; each attempt is independent.
	flow.StepUser(context.Background(), &UserInput{Username: "u", Password: "p"})
	assert.Equal(t, 2, calls)
}

func TestStepUser_LogsOneLinePerFailure(t *testing.T) {
	flow, logs := newTestFlow(fetcherFor(errors.New("401 Unauthorized"), nil), newMemRegistry())

	flow.StepUser(context.Background(), &UserInput{Username: "testuser", Password: "wrongpass"})

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorLogs, 1)
	assert.Equal(t, "401 Unauthorized", errorLogs[0].ContextMap()["error"])
	assert.NotContains(t, errorLogs[0].ContextMap(), "password")
}

func TestStepUser_WithSQLiteRegistry(t *testing.T) {
	ctx := context.Background()

	db, err := entry.OpenDB(filepath.Join(t.TempDir(), "entries.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	enc, err := crypto.NewEncryptor("test-key")
	require.NoError(t, err)
	store := entry.NewStore(db, entry.NewEncryptedSecrets(enc))

	flow, _ := newTestFlow(fetcherFor(nil, nil), store)
	input := &UserInput{Username: "testuser", Password: "correctpass"}

	first := flow.StepUser(ctx, input)
	require.Equal(t, ResultCreateEntry, first.Type)
	assert.Equal(t, "SFOWeb (testuser)", first.Title)

	second := flow.StepUser(ctx, input)
	assert.Equal(t, ResultAbort, second.Type)

	entries, err := store.List(ctx, Domain)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "correctpass", entries[0].Data.Password)
}
