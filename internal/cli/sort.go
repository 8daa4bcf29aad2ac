package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate SortOrder = "date"
	SortByWhat SortOrder = "what"
)

// sortAppointments sorts a slice of appointments based on the specified sort order
func sortAppointments(appointments []*appointment.Appointment, order SortOrder) {
	switch order {
	case SortByDate:
		appointment.Sort(appointments)
	case SortByWhat:
		appointment.Sort(appointments)
		sort.SliceStable(appointments, func(i, j int) bool {
			return strings.ToLower(appointments[i].What) < strings.ToLower(appointments[j].What)
		})
	}
}
