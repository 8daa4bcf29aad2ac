// Package cli implements the command-line interface for sfoweb.
//
// The cli package provides the Cobra-based CLI: "setup" runs the credential
// config flow and stores a new entry, "entries" lists and removes entries,
// "appointments" scrapes and prints appointments (text/JSON/ICS), and "run"
// loads every entry and keeps polling, serving Prometheus metrics. Settings
// come from SFOWEB_* environment variables and persistent flags via viper.
package cli
