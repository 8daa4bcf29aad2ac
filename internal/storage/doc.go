// Package storage persists appointment snapshots as JSON files.
//
// Each config entry gets its own snapshot file (snapshot_<entry id>.json)
// under the data directory, so the coordinator can tell which appointments
// are new since the previous run. The default location is
// ~/.local/share/sfoweb/.
package storage
