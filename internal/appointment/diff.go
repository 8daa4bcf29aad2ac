package appointment

import (
	"sort"
)

// Snapshot represents the appointments of one account at a point in time
type Snapshot struct {
	Appointments map[string]*Appointment `json:"appointments"` // keyed by Appointment.ID
	UpdatedAt    string                  `json:"updated_at"`   // RFC3339 timestamp
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Appointments: make(map[string]*Appointment),
	}
}

// CreateSnapshot creates a snapshot from a list of appointments
func CreateSnapshot(appointments []*Appointment, updatedAt string) *Snapshot {
	snap := NewSnapshot()
	snap.UpdatedAt = updatedAt

	for _, a := range appointments {
		snap.Appointments[a.ID] = a
	}

	return snap
}

// DiffResult contains the results of comparing a snapshot with a fresh fetch
type DiffResult struct {
	New     []*Appointment
	Removed []*Appointment
}

// HasChanges reports whether anything was added or removed
func (d *DiffResult) HasChanges() bool {
	return len(d.New) > 0 || len(d.Removed) > 0
}

// Diff compares current appointments against a previous snapshot.
// Appointments already known keep their original FirstSeen.
func Diff(previous *Snapshot, current []*Appointment) *DiffResult {
	result := &DiffResult{
		New:     make([]*Appointment, 0),
		Removed: make([]*Appointment, 0),
	}

	if previous == nil {
		previous = NewSnapshot()
	}

	seen := make(map[string]bool, len(current))
	for _, a := range current {
		seen[a.ID] = true

		if old, exists := previous.Appointments[a.ID]; exists {
			if !old.FirstSeen.IsZero() {
				a.FirstSeen = old.FirstSeen
			}
			continue
		}
		result.New = append(result.New, a)
	}

	for id, a := range previous.Appointments {
		if !seen[id] {
			result.Removed = append(result.Removed, a)
		}
	}

	Sort(result.New)
	Sort(result.Removed)

	return result
}

// Sort orders appointments chronologically. Appointments with unparseable
// dates go last, ordered by description.
func Sort(appointments []*Appointment) {
	sort.SliceStable(appointments, func(i, j int) bool {
		return less(appointments[i], appointments[j])
	})
}

func less(a, b *Appointment) bool {
	da, db := ParseDate(a.Date), ParseDate(b.Date)

	if !da.IsZero() && !db.IsZero() {
		if !da.Equal(db) {
			return da.Before(db)
		}
		return a.Time < b.Time
	}

	if !da.IsZero() {
		return true
	}
	if !db.IsZero() {
		return false
	}

	return a.FullDescription < b.FullDescription
}
