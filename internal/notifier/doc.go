// Package notifier delivers notifications about newly seen appointments.
//
// The coordinator hands each refresh's new appointments to a Notifier. The
// package ships a structured-log notifier, a dry-run notifier that prints
// messages, and a webhook notifier that posts JSON to an HTTP endpoint.
package notifier
