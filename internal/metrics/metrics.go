// Package metrics exposes Prometheus counters for credential checks and
// appointment refreshes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every sfoweb collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// CredentialChecks counts config flow verification attempts by outcome.
	CredentialChecks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfoweb_credential_checks_total",
			Help: "Number of credential verification attempts by outcome.",
		},
		[]string{"outcome"})

	// Refreshes counts coordinator refreshes by result ("success" or "failure").
	Refreshes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfoweb_refreshes_total",
			Help: "Number of appointment refreshes.",
		},
		[]string{"result"})

	RefreshDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "sfoweb_refresh_duration_seconds",
		Help:    "Duration of appointment refreshes, login included.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
	})

	// Appointments is the number of appointments last seen per config entry.
	Appointments = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sfoweb_appointments",
		Help: "Number of appointments in the last successful refresh.",
	}, []string{"entry"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
