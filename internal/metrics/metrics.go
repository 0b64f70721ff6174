// Package metrics exposes Prometheus counters for the grid's search and session activity.
//
// Every method is safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes recorded by [Metrics.Search].
const (
	SearchScheduled = "scheduled"
	SearchFired     = "fired"
	SearchApplied   = "applied"
	SearchStale     = "stale"
	SearchFailed    = "failed"
	SearchCleared   = "cleared"
)

// Metrics holds the registry and collectors.
type Metrics struct {
	registry           *prometheus.Registry
	searches           *prometheus.CounterVec
	tokenFetchFailures prometheus.Counter
	signIns            prometheus.Counter
	signOuts           prometheus.Counter
	httpRequests       *prometheus.CounterVec
	entries            prometheus.Gauge
	wsClients          prometheus.Gauge
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	searches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgrid_channel_searches_total",
		Help: "Channel search lifecycle events by outcome",
	}, []string{"outcome"})
	tokenFetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamgrid_app_token_failures_total",
		Help: "Failed client-credentials token requests",
	})
	signIns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamgrid_sign_ins_total",
		Help: "Completed Twitch sign-ins",
	})
	signOuts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamgrid_sign_outs_total",
		Help: "Twitch sign-outs",
	})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgrid_http_requests_total",
		Help: "HTTP requests by status class",
	}, []string{"class"})
	entries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "streamgrid_stream_entries",
		Help: "Entries currently in the grid",
	})
	wsClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "streamgrid_websocket_clients",
		Help: "Connected websocket clients",
	})

	registry.MustRegister(searches, tokenFetchFailures, signIns, signOuts, httpRequests, entries, wsClients)

	return &Metrics{
		registry:           registry,
		searches:           searches,
		tokenFetchFailures: tokenFetchFailures,
		signIns:            signIns,
		signOuts:           signOuts,
		httpRequests:       httpRequests,
		entries:            entries,
		wsClients:          wsClients,
	}
}

// Search counts one search event with the given outcome.
func (m *Metrics) Search(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

// IncTokenFailures increments the failed app-token counter.
func (m *Metrics) IncTokenFailures() {
	if m == nil {
		return
	}
	m.tokenFetchFailures.Inc()
}

// IncSignIns increments the sign-in counter.
func (m *Metrics) IncSignIns() {
	if m == nil {
		return
	}
	m.signIns.Inc()
}

// IncSignOuts increments the sign-out counter.
func (m *Metrics) IncSignOuts() {
	if m == nil {
		return
	}
	m.signOuts.Inc()
}

// ObserveStatus counts one HTTP response by class ("2xx", "4xx", ...).
func (m *Metrics) ObserveStatus(status int) {
	if m == nil {
		return
	}
	class := "5xx"
	switch {
	case status < 200:
		class = "1xx"
	case status < 300:
		class = "2xx"
	case status < 400:
		class = "3xx"
	case status < 500:
		class = "4xx"
	}
	m.httpRequests.WithLabelValues(class).Inc()
}

// SetEntries sets the grid size gauge.
func (m *Metrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}

// AddWSClients moves the websocket client gauge by delta.
func (m *Metrics) AddWSClients(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
//
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		inner.ServeHTTP(w, r)
	})
}
