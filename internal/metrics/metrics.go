// Package metrics exposes the core's Prometheus counters and gauges:
// connections, bytes, protocol errors, idle disconnects, and reply-list
// coalescing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry groups every collector the core publishes.
type Registry struct {
	ConnectionsTotal        prometheus.Counter
	ConnectionsActive       prometheus.Gauge
	ConnectionsRejectedMax  prometheus.Counter
	ConnectionsRejectedRate prometheus.Counter

	BytesRead    prometheus.Counter
	BytesWritten prometheus.Counter

	ProtocolErrors  prometheus.Counter
	IdleDisconnects prometheus.Counter
	IOErrors        prometheus.Counter

	ReplyCoalesced   prometheus.Counter
	ReplyBytesQueued prometheus.Gauge
}

// New constructs and registers every collector against reg.
func New(reg *prometheus.Registry) *Registry {
	m := &Registry{
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcore_connections_total",
			Help: "Total TCP connections accepted.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvcore_connections_active",
			Help: "Currently connected clients.",
		}),
		ConnectionsRejectedMax: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcore_connections_rejected_maxclients_total",
			Help: "Connections rejected because maxclients was reached.",
		}),
		ConnectionsRejectedRate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcore_connections_rejected_rate_limit_total",
			Help: "Connection attempts rejected by the accept-rate limiter.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcore_bytes_read_total",
			Help: "Total bytes read from clients.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcore_bytes_written_total",
			Help: "Total bytes written to clients.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcore_protocol_errors_total",
			Help: "Malformed requests detected by the parser.",
		}),
		IdleDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcore_idle_disconnects_total",
			Help: "Clients closed by the idle-timeout sweeper.",
		}),
		IOErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcore_io_errors_total",
			Help: "Non-EAGAIN read/write errors that closed a client.",
		}),
		ReplyCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcore_reply_coalesced_total",
			Help: "Appends that coalesced into an existing reply-list tail object.",
		}),
		ReplyBytesQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvcore_reply_bytes_queued",
			Help: "Sum of reply_bytes plus bufpos across all clients.",
		}),
	}

	reg.MustRegister(
		m.ConnectionsTotal, m.ConnectionsActive, m.ConnectionsRejectedMax, m.ConnectionsRejectedRate,
		m.BytesRead, m.BytesWritten,
		m.ProtocolErrors, m.IdleDisconnects, m.IOErrors,
		m.ReplyCoalesced, m.ReplyBytesQueued,
	)
	return m
}

// Serve starts the Prometheus HTTP endpoint on addr. It runs on its own
// goroutine, separate from the reactor, and only ever reads the registry's
// atomics, never client state.
func Serve(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go srv.ListenAndServe()
	return srv
}
