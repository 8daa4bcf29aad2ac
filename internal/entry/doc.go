// Package entry persists config entries: one record per configured account,
// keyed by a unique id within the integration's domain.
//
// Entries live in SQLite (dual reader/writer connections, schema managed by
// embedded migrations). Passwords are never written in clear; a SecretStore
// either seals them into the row or keeps them in the OS keyring.
package entry
