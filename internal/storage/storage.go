package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

// ErrInvalidKey is returned for snapshot keys that are not safe file name parts
var ErrInvalidKey = errors.New("invalid snapshot key")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Storage handles persistence of appointment snapshots
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	dataDir, err := ExpandHome(dataDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// ExpandHome expands a leading ~/ to the user's home directory
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// Dir returns the data directory
func (s *Storage) Dir() string {
	return s.dataDir
}

func (s *Storage) snapshotPath(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dataDir, fmt.Sprintf("snapshot_%s.json", key)), nil
}

// LoadSnapshot loads the snapshot stored under key. A missing file yields an
// empty snapshot.
func (s *Storage) LoadSnapshot(key string) (*appointment.Snapshot, error) {
	path, err := s.snapshotPath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return appointment.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot appointment.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	if snapshot.Appointments == nil {
		snapshot.Appointments = make(map[string]*appointment.Appointment)
	}

	return &snapshot, nil
}

// SaveSnapshot writes snapshot under key, replacing the previous file atomically
func (s *Storage) SaveSnapshot(snapshot *appointment.Snapshot, key string) error {
	path, err := s.snapshotPath(key)
	if err != nil {
		return err
	}

	snapshot.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dataDir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	return nil
}

// SaveAppointments creates and saves a snapshot from a list of appointments
func (s *Storage) SaveAppointments(appointments []*appointment.Appointment, key string) error {
	snapshot := appointment.CreateSnapshot(appointments, time.Now().UTC().Format(time.RFC3339))
	return s.SaveSnapshot(snapshot, key)
}

// DeleteSnapshot removes the snapshot stored under key, if any
func (s *Storage) DeleteSnapshot(key string) error {
	path, err := s.snapshotPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}

// GetAppointmentByID retrieves an appointment by ID from the snapshot stored under key
func (s *Storage) GetAppointmentByID(key, id string) (*appointment.Appointment, error) {
	snapshot, err := s.LoadSnapshot(key)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	if a, exists := snapshot.Appointments[id]; exists {
		return a, nil
	}

	return nil, fmt.Errorf("appointment not found: %s", id)
}
