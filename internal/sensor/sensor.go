// Package sensor exposes coordinator data as sensor entities.
package sensor

import (
	"fmt"
	"time"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

const (
	StateUnknown        = "Unknown"
	StateNoAppointments = "No appointments"
)

// Source is the coordinator state a sensor reads
type Source interface {
	Data() []*appointment.Appointment
	LastUpdateSuccess() bool
	LastUpdated() time.Time
}

// Entity is a read-only sensor
type Entity interface {
	Name() string
	UniqueID() string
	Icon() string
	State() string
	Attributes() map[string]any
	Available() bool
}

// StateSnapshot is an entity's rendered state at one point in time
type StateSnapshot struct {
	Name       string         `json:"name"`
	UniqueID   string         `json:"unique_id"`
	Icon       string         `json:"icon"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
	Available  bool           `json:"available"`
}

// Render captures e's current state
func Render(e Entity) StateSnapshot {
	return StateSnapshot{
		Name:       e.Name(),
		UniqueID:   e.UniqueID(),
		Icon:       e.Icon(),
		State:      e.State(),
		Attributes: e.Attributes(),
		Available:  e.Available(),
	}
}

// ForAccount returns the sensors of one account
func ForAccount(src Source, username string) []Entity {
	return []Entity{
		NewAppointmentsSensor(src, username),
		NewNextAppointmentSensor(src, username),
	}
}

type base struct {
	src      Source
	username string
}

func (b base) Available() bool {
	return b.src.LastUpdateSuccess()
}

// AppointmentsSensor reports the number of appointments and lists them
type AppointmentsSensor struct {
	base
}

func NewAppointmentsSensor(src Source, username string) *AppointmentsSensor {
	return &AppointmentsSensor{base{src: src, username: username}}
}

func (s *AppointmentsSensor) Name() string {
	return fmt.Sprintf("SFOWeb Appointments (%s)", s.username)
}

func (s *AppointmentsSensor) UniqueID() string {
	return "sfoweb_appointments_" + s.username
}

func (s *AppointmentsSensor) Icon() string {
	return "mdi:calendar-multiple"
}

// State is the appointment count, or "Unknown" before the first successful refresh
func (s *AppointmentsSensor) State() string {
	data := s.src.Data()
	if data == nil {
		return StateUnknown
	}
	return fmt.Sprintf("%d", len(data))
}

func (s *AppointmentsSensor) Attributes() map[string]any {
	data := s.src.Data()
	if data == nil {
		return map[string]any{}
	}

	list := make([]map[string]string, len(data))
	for i, a := range data {
		list[i] = a.Attributes()
	}

	return map[string]any{
		"appointments": list,
		"last_updated": s.src.LastUpdated().Format(time.RFC3339),
		"username":     s.username,
	}
}

// NextAppointmentSensor reports the earliest appointment
type NextAppointmentSensor struct {
	base
}

func NewNextAppointmentSensor(src Source, username string) *NextAppointmentSensor {
	return &NextAppointmentSensor{base{src: src, username: username}}
}

func (s *NextAppointmentSensor) Name() string {
	return fmt.Sprintf("SFOWeb Next Appointment (%s)", s.username)
}

func (s *NextAppointmentSensor) UniqueID() string {
	return "sfoweb_next_" + s.username
}

func (s *NextAppointmentSensor) Icon() string {
	return "mdi:calendar-clock"
}

func (s *NextAppointmentSensor) next() *appointment.Appointment {
	data := s.src.Data()
	if len(data) == 0 {
		return nil
	}
	return data[0]
}

func (s *NextAppointmentSensor) State() string {
	next := s.next()
	if next == nil {
		return StateNoAppointments
	}
	if next.FullDescription == "" {
		return StateUnknown
	}
	return next.FullDescription
}

func (s *NextAppointmentSensor) Attributes() map[string]any {
	next := s.next()
	if next == nil {
		return map[string]any{}
	}
	return map[string]any{
		"date":     next.Date,
		"time":     next.Time,
		"what":     next.What,
		"comment":  next.Comment,
		"username": s.username,
	}
}
