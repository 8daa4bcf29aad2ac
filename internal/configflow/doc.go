// Package configflow implements the setup flow that turns a username and password
// into a config entry.
//
// The flow has a single "user" step. A submission is verified by running one
// appointment fetch with the given credentials; the resulting error, if any, is
// mapped onto the form error codes cannot_connect and invalid_auth by looking for
// "timeout" in its text. Failures outside that credential test surface as unknown.
// A panic is not an error value, so a fetcher that panics also yields unknown
// rather than going through the timeout check.
// Entries are keyed by username, and a second entry for the same username aborts
// with already_configured.
//
// The host side (entry registry, logging) is injected, so the flow can be driven
// from the CLI, from tests, or from any other front end.
package configflow
