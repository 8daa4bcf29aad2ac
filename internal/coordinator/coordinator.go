package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
	"github.com/pfrederiksen/sfoweb/internal/logger"
	"github.com/pfrederiksen/sfoweb/internal/metrics"
	"github.com/pfrederiksen/sfoweb/internal/notifier"
)

// DefaultScanInterval is how often the portal is polled
const DefaultScanInterval = 6 * time.Hour

// ErrNotReady is returned by FirstRefresh when the initial fetch fails; the
// entry should be retried later rather than set up with no data.
var ErrNotReady = errors.New("entry not ready")

// UpdateFailedError wraps a failed refresh
type UpdateFailedError struct {
	Err error
}

func (e *UpdateFailedError) Error() string {
	return fmt.Sprintf("error communicating with API: %v", e.Err)
}

func (e *UpdateFailedError) Unwrap() error {
	return e.Err
}

// Fetcher fetches the current appointments
type Fetcher interface {
	FetchAppointments(ctx context.Context) ([]*appointment.Appointment, error)
}

// SnapshotStore persists the last seen appointments per key
type SnapshotStore interface {
	LoadSnapshot(key string) (*appointment.Snapshot, error)
	SaveSnapshot(snapshot *appointment.Snapshot, key string) error
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithInterval sets the polling interval
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithSnapshots enables diffing against snapshots stored under key
func WithSnapshots(store SnapshotStore, key string) Option {
	return func(c *Coordinator) {
		c.snapshots = store
		c.key = key
	}
}

// WithNotifier sets the notifier for new appointments
func WithNotifier(n notifier.Notifier) Option {
	return func(c *Coordinator) {
		c.notifier = n
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger.OrNop(l)
	}
}

// Coordinator polls a Fetcher and holds the latest result
type Coordinator struct {
	name      string
	fetcher   Fetcher
	interval  time.Duration
	snapshots SnapshotStore
	key       string
	notifier  notifier.Notifier
	logger    *zap.Logger

	mu          sync.RWMutex
	data        []*appointment.Appointment
	lastSuccess bool
	lastUpdated time.Time
	lastErr     error

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int

	refreshMu sync.Mutex

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a Coordinator. name identifies the account in logs,
// notifications and metrics.
func New(name string, fetcher Fetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		name:      name,
		fetcher:   fetcher,
		interval:  DefaultScanInterval,
		logger:    zap.NewNop(),
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("coordinator", name))
	return c
}

// Name returns the coordinator's name
func (c *Coordinator) Name() string {
	return c.name
}

// Interval returns the polling interval
func (c *Coordinator) Interval() time.Duration {
	return c.interval
}

// Data returns the appointments from the last successful refresh. It is nil
// until a refresh has succeeded.
func (c *Coordinator) Data() []*appointment.Appointment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// LastUpdateSuccess reports whether the most recent refresh succeeded
func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

// LastUpdated returns when data was last refreshed successfully
func (c *Coordinator) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdated
}

// LastError returns the error of the most recent refresh, if it failed
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// AddListener registers fn to run after every refresh. The returned function
// removes it.
func (c *Coordinator) AddListener(fn func()) (remove func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Coordinator) notifyListeners() {
	c.listenersMu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// FirstRefresh performs the initial refresh; a failure yields ErrNotReady
func (c *Coordinator) FirstRefresh(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

// Refresh fetches appointments once and updates the coordinator's state.
// A fetch failure is returned as *UpdateFailedError and keeps the previous data.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	start := time.Now()
	appointments, err := c.fetcher.FetchAppointments(ctx)
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		updateErr := &UpdateFailedError{Err: err}

		c.mu.Lock()
		c.lastSuccess = false
		c.lastErr = updateErr
		c.mu.Unlock()

		metrics.Refreshes.WithLabelValues("error").Inc()
		c.logger.Error("Error fetching data", zap.Error(err))
		c.notifyListeners()
		return updateErr
	}

	appointment.Sort(appointments)
	c.track(ctx, appointments)

	c.mu.Lock()
	c.data = appointments
	c.lastSuccess = true
	c.lastUpdated = time.Now().UTC()
	c.lastErr = nil
	c.mu.Unlock()

	metrics.Refreshes.WithLabelValues("success").Inc()
	metrics.Appointments.WithLabelValues(c.name).Set(float64(len(appointments)))
	c.logger.Debug("refreshed appointments", zap.Int("count", len(appointments)))

	c.notifyListeners()
	return nil
}

// track diffs appointments against the stored snapshot, notifies about new
// ones and saves the new snapshot. Snapshot and notifier failures are logged
// but do not fail the refresh. The very first snapshot only sets a baseline.
func (c *Coordinator) track(ctx context.Context, appointments []*appointment.Appointment) {
	if c.snapshots == nil {
		return
	}

	previous, err := c.snapshots.LoadSnapshot(c.key)
	if err != nil {
		c.logger.Warn("loading snapshot", zap.Error(err))
		return
	}

	diff := appointment.Diff(previous, appointments)
	baseline := previous.UpdatedAt == ""

	if diff.HasChanges() {
		c.logger.Info("appointments changed",
			zap.Int("new", len(diff.New)),
			zap.Int("removed", len(diff.Removed)),
			zap.Bool("baseline", baseline),
		)
	}

	if !baseline && len(diff.New) > 0 && c.notifier != nil {
		if err := c.notifier.Notify(ctx, c.name, diff.New); err != nil {
			c.logger.Warn("notifying new appointments", zap.Error(err))
		}
	}

	snapshot := appointment.CreateSnapshot(appointments, time.Now().UTC().Format(time.RFC3339))
	if err := c.snapshots.SaveSnapshot(snapshot, c.key); err != nil {
		c.logger.Warn("saving snapshot", zap.Error(err))
	}
}

// Start polls in the background every interval until Stop is called or ctx
// is cancelled. Failed refreshes are retried on the next tick.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = c.Refresh(ctx)
			}
		}
	}()
}

// Stop stops background polling and waits for an in-flight refresh to finish
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.cancel()
		<-c.done
	})
}
