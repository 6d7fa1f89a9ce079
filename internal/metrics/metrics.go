// Package metrics holds the Prometheus collectors for the repository and the
// snapshot server. Every method is safe on a nil *Metrics, so callers can
// run without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vendori"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics is a set of collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	operations      *prometheus.CounterVec
	persistDuration prometheus.Histogram
	persistFailures prometheus.Counter
	snapshotBytes   prometheus.Gauge
	records         prometheus.Gauge
	pending         prometheus.Gauge
	uploads         *prometheus.CounterVec
	uploadBytes     prometheus.Counter
}

// New creates the collectors on a fresh registry. Each call is independent,
// so tests can create as many as they like without registration conflicts.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "operations_total",
			Help:      "Repository operations by kind and result.",
		}, []string{"op", "result"}),
		persistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "persist_duration_seconds",
			Help:      "Time to export and save a full snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "persist_failures_total",
			Help:      "Snapshot saves that failed.",
		}),
		snapshotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "snapshot_bytes",
			Help:      "Size of the last exported snapshot image.",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "records",
			Help:      "Vendor records in the live table.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "pending_flush",
			Help:      "1 while the in-memory table holds changes the medium does not.",
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "uploads_total",
			Help:      "Snapshot uploads received by HTTP status class.",
		}, []string{"status"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "upload_bytes_total",
			Help:      "Bytes of snapshots written by the server.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations,
		m.persistDuration,
		m.persistFailures,
		m.snapshotBytes,
		m.records,
		m.pending,
		m.uploads,
		m.uploadBytes,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOp counts one repository operation.
func (m *Metrics) ObserveOp(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result(err)).Inc()
}

// ObservePersist records one snapshot save attempt.
func (m *Metrics) ObservePersist(d time.Duration, imageBytes int, err error) {
	if m == nil {
		return
	}
	m.persistDuration.Observe(d.Seconds())
	if err != nil {
		m.persistFailures.Inc()
		return
	}
	m.snapshotBytes.Set(float64(imageBytes))
}

// SetRecords sets the live record count.
func (m *Metrics) SetRecords(n int) {
	if m == nil {
		return
	}
	m.records.Set(float64(n))
}

// SetPending flags unpersisted changes.
func (m *Metrics) SetPending(pending bool) {
	if m == nil {
		return
	}
	if pending {
		m.pending.Set(1)
	} else {
		m.pending.Set(0)
	}
}

// ObserveUpload counts one upload handled by the snapshot server.
func (m *Metrics) ObserveUpload(status int, n int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(statusClass(status)).Inc()
	if n > 0 {
		m.uploadBytes.Add(float64(n))
	}
}

func result(err error) string {
	if err == nil {
		return ResultOK
	}
	return ResultError
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
