package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
	"github.com/pfrederiksen/sfoweb/internal/storage"
)

type stubFetcher struct {
	mu      sync.Mutex
	results [][]*appointment.Appointment
	errs    []error
	calls   int
}

func (s *stubFetcher) FetchAppointments(context.Context) ([]*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	if s.errs != nil && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	// fresh copies, as a real scrape would return
	out := make([]*appointment.Appointment, len(s.results[i]))
	for j, a := range s.results[i] {
		cp := *a
		out[j] = &cp
	}
	return out, nil
}

func (s *stubFetcher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]*appointment.Appointment
}

func (r *recordingNotifier) Notify(_ context.Context, _ string, appointments []*appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, appointments)
	return nil
}

var (
	early = appointment.New("10-03-2026", "Selvbestemmer", "14:00", "", "")
	late  = appointment.New("20-03-2026", "Går selv hjem", "15:30", "", "")
)

func TestFirstRefresh_Success(t *testing.T) {
	f := &stubFetcher{results: [][]*appointment.Appointment{{late, early}}}
	c := New("testuser", f)

	require.NoError(t, c.FirstRefresh(context.Background()))

	assert.True(t, c.LastUpdateSuccess())
	assert.False(t, c.LastUpdated().IsZero())
	require.Len(t, c.Data(), 2)
	assert.Equal(t, early.ID, c.Data()[0].ID, "data is sorted chronologically")
}

func TestFirstRefresh_NotReady(t *testing.T) {
	f := &stubFetcher{
		results: [][]*appointment.Appointment{nil},
		errs:    []error{errors.New("Connection timeout after 30s")},
	}
	c := New("testuser", f)

	err := c.FirstRefresh(context.Background())

	require.ErrorIs(t, err, ErrNotReady)
	var updateErr *UpdateFailedError
	require.ErrorAs(t, err, &updateErr)
	assert.EqualError(t, updateErr.Err, "Connection timeout after 30s")
	assert.False(t, c.LastUpdateSuccess())
	assert.Nil(t, c.Data())
}

func TestRefresh_FailureKeepsData(t *testing.T) {
	f := &stubFetcher{
		results: [][]*appointment.Appointment{{early}, nil},
		errs:    []error{nil, errors.New("unexpected status code: 503")},
	}
	c := New("testuser", f)

	require.NoError(t, c.Refresh(context.Background()))
	updated := c.LastUpdated()

	err := c.Refresh(context.Background())
	var updateErr *UpdateFailedError
	require.ErrorAs(t, err, &updateErr)
	assert.Contains(t, err.Error(), "error communicating with API")

	assert.False(t, c.LastUpdateSuccess())
	assert.Equal(t, updated, c.LastUpdated())
	assert.Len(t, c.Data(), 1)
	assert.Equal(t, err, c.LastError())
}

func TestListeners(t *testing.T) {
	f := &stubFetcher{results: [][]*appointment.Appointment{{early}}}
	c := New("testuser", f)

	var calls atomic.Int32
	remove := c.AddListener(func() { calls.Add(1) })

	require.NoError(t, c.Refresh(context.Background()))
	assert.EqualValues(t, 1, calls.Load())

	remove()
	require.NoError(t, c.Refresh(context.Background()))
	assert.EqualValues(t, 1, calls.Load())
}

func TestRefresh_NotifiesNewAppointments(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	f := &stubFetcher{results: [][]*appointment.Appointment{
		{early},
		{early, late},
		{late},
	}}
	n := &recordingNotifier{}
	c := New("testuser", f, WithSnapshots(store, "entry-1"), WithNotifier(n))

	// first refresh only sets the baseline
	require.NoError(t, c.Refresh(context.Background()))
	assert.Empty(t, n.calls)

	require.NoError(t, c.Refresh(context.Background()))
	require.Len(t, n.calls, 1)
	require.Len(t, n.calls[0], 1)
	assert.Equal(t, late.ID, n.calls[0][0].ID)

	// removal only
	require.NoError(t, c.Refresh(context.Background()))
	assert.Len(t, n.calls, 1)

	snap, err := store.LoadSnapshot("entry-1")
	require.NoError(t, err)
	assert.Len(t, snap.Appointments, 1)
	assert.Contains(t, snap.Appointments, late.ID)
}

func TestRefresh_KeepsFirstSeen(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	seen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	old := *early
	old.FirstSeen = seen
	require.NoError(t, store.SaveAppointments([]*appointment.Appointment{&old}, "entry-1"))

	f := &stubFetcher{results: [][]*appointment.Appointment{{early}}}
	c := New("testuser", f, WithSnapshots(store, "entry-1"))

	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, c.Data()[0].FirstSeen.Equal(seen))
}

func TestStartStop(t *testing.T) {
	f := &stubFetcher{results: [][]*appointment.Appointment{{early}}}
	c := New("testuser", f, WithInterval(10*time.Millisecond))

	c.Start(context.Background())
	assert.Eventually(t, func() bool { return f.Calls() >= 2 }, time.Second, 5*time.Millisecond)

	c.Stop()
	c.Stop()
	after := f.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, f.Calls())
}

func TestStopWithoutStart(t *testing.T) {
	c := New("testuser", &stubFetcher{results: [][]*appointment.Appointment{nil}})
	assert.NotPanics(t, c.Stop)
}

func TestDefaults(t *testing.T) {
	c := New("testuser", &stubFetcher{results: [][]*appointment.Appointment{nil}}, WithInterval(0))
	assert.Equal(t, DefaultScanInterval, c.Interval())
	assert.Equal(t, "testuser", c.Name())
}
