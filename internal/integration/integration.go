// Package integration sets up and unloads config entries: each loaded entry
// gets a scraper, a polling coordinator and its sensors.
package integration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pfrederiksen/sfoweb/internal/coordinator"
	"github.com/pfrederiksen/sfoweb/internal/entry"
	"github.com/pfrederiksen/sfoweb/internal/logger"
	"github.com/pfrederiksen/sfoweb/internal/notifier"
	"github.com/pfrederiksen/sfoweb/internal/sensor"
)

var (
	ErrAlreadyLoaded = errors.New("entry already loaded")
	ErrNotLoaded     = errors.New("entry not loaded")
)

// FetcherFactory builds the fetcher for an entry's stored credentials
type FetcherFactory func(data entry.Data) coordinator.Fetcher

// Runtime is the live state of one loaded entry
type Runtime struct {
	Entry       *entry.Entry
	Coordinator *coordinator.Coordinator
	Sensors     []sensor.Entity
}

type Option func(*Manager)

func WithScanInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

func WithSnapshots(store coordinator.SnapshotStore) Option {
	return func(m *Manager) { m.snapshots = store }
}

func WithNotifier(n notifier.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger.OrNop(l) }
}

// Manager tracks loaded entries by entry id
type Manager struct {
	newFetcher FetcherFactory
	interval   time.Duration
	snapshots  coordinator.SnapshotStore
	notifier   notifier.Notifier
	logger     *zap.Logger

	mu       sync.Mutex
	runtimes map[string]*Runtime
}

func NewManager(newFetcher FetcherFactory, opts ...Option) *Manager {
	m := &Manager{
		newFetcher: newFetcher,
		interval:   coordinator.DefaultScanInterval,
		logger:     zap.NewNop(),
		runtimes:   make(map[string]*Runtime),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Setup loads e: it runs the first refresh, which must succeed, then starts
// background polling bound to ctx. A failed first refresh returns an error
// wrapping coordinator.ErrNotReady and leaves nothing loaded.
func (m *Manager) Setup(ctx context.Context, e *entry.Entry) (*Runtime, error) {
	m.mu.Lock()
	if _, ok := m.runtimes[e.EntryID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyLoaded, e.EntryID)
	}
	// reserve the slot so concurrent Setup calls for the same entry fail fast
	m.runtimes[e.EntryID] = nil
	m.mu.Unlock()

	rt, err := m.setup(ctx, e)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		delete(m.runtimes, e.EntryID)
		return nil, err
	}
	m.runtimes[e.EntryID] = rt
	return rt, nil
}

func (m *Manager) setup(ctx context.Context, e *entry.Entry) (*Runtime, error) {
	opts := []coordinator.Option{
		coordinator.WithInterval(m.interval),
		coordinator.WithLogger(m.logger),
	}
	if m.snapshots != nil {
		opts = append(opts, coordinator.WithSnapshots(m.snapshots, e.EntryID))
	}
	if m.notifier != nil {
		opts = append(opts, coordinator.WithNotifier(m.notifier))
	}

	c := coordinator.New(e.Data.Username, m.newFetcher(e.Data), opts...)
	if err := c.FirstRefresh(ctx); err != nil {
		fields := entryFields(e)
		fields["error"] = err
		m.logger.Warn("setting up entry", fields.Zap()...)
		return nil, err
	}

	c.Start(ctx)

	fields := entryFields(e)
	fields["scan_interval"] = c.Interval()
	m.logger.Info("entry loaded", fields.Zap()...)

	return &Runtime{
		Entry:       e,
		Coordinator: c,
		Sensors:     sensor.ForAccount(c, e.Data.Username),
	}, nil
}

// Unload stops the entry's coordinator and forgets it
func (m *Manager) Unload(entryID string) error {
	m.mu.Lock()
	rt, ok := m.runtimes[entryID]
	if !ok || rt == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotLoaded, entryID)
	}
	delete(m.runtimes, entryID)
	m.mu.Unlock()

	rt.Coordinator.Stop()
	m.logger.Info("entry unloaded", zap.String("entry_id", entryID))
	return nil
}

// UnloadAll unloads every loaded entry
func (m *Manager) UnloadAll() {
	for _, rt := range m.Runtimes() {
		_ = m.Unload(rt.Entry.EntryID)
	}
}

// Get returns the runtime of a loaded entry
func (m *Manager) Get(entryID string) (*Runtime, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.runtimes[entryID]
	return rt, ok && rt != nil
}

// Runtimes returns the loaded entries ordered by title
func (m *Manager) Runtimes() []*Runtime {
	m.mu.Lock()
	out := make([]*Runtime, 0, len(m.runtimes))
	for _, rt := range m.runtimes {
		if rt != nil {
			out = append(out, rt)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Entry.Title < out[j].Entry.Title
	})
	return out
}

func entryFields(e *entry.Entry) logger.Fields {
	return logger.Fields{
		"entry_id": e.EntryID,
		"title":    e.Title,
	}
}
