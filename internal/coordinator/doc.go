// Package coordinator polls the SFOWeb portal for one config entry and fans
// the result out to its sensors.
//
// A Coordinator owns the latest appointment list and whether the last refresh
// succeeded. Each refresh is diffed against the entry's stored snapshot so
// appointments not seen before are handed to a notifier.
package coordinator
