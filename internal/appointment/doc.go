// Package appointment provides types and functions for managing SFOWeb appointments.
//
// The appointment package handles appointment representation, identification, and change
// detection through snapshot-based diffing. Each appointment is assigned a deterministic
// SHA1-based ID generated from its date, description and time, enabling reliable
// tracking across refreshes.
package appointment
