// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ai-bom-service/internal/core/domain"
)

const namespace = "aibom"

// =============================================================================
// HTTP
// =============================================================================

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// =============================================================================
// Engine
// =============================================================================

var (
	// fingerprintBytes counts bytes streamed through the fingerprint engine.
	// Labels: algorithm
	fingerprintBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fingerprint",
		Name:      "bytes_total",
		Help:      "Artifact bytes hashed",
	}, []string{"algorithm"})

	fingerprintDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "fingerprint",
		Name:      "duration_seconds",
		Help:      "Time to stream and hash one artifact",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"algorithm"})

	// registrations labels: outcome (created, existing, conflict, error)
	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "registrations_total",
		Help:      "Component registrations by outcome",
	}, []string{"outcome"})

	// edgeOps labels: op (add, retract), outcome (ok, cycle, unknown, error)
	edgeOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lineage",
		Name:      "edge_operations_total",
		Help:      "Lineage edge operations by outcome",
	}, []string{"op", "outcome"})

	graphVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "lineage",
		Name:      "graph_version",
		Help:      "Number of changes applied to the lineage index since start",
	})

	// traversals labels: direction (ancestors, descendants), complete (true, false)
	traversals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lineage",
		Name:      "traversals_total",
		Help:      "Lineage traversals by direction and completeness",
	}, []string{"direction", "complete"})

	// snapshots labels: outcome (created, deduplicated, error)
	snapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "builds_total",
		Help:      "BOM snapshot builds by outcome",
	}, []string{"outcome"})

	snapshotComponents = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "components",
		Help:      "Components per built snapshot",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	})

	// verifications labels: status (verified, mismatch, not_found, unavailable, error)
	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "verification",
		Name:      "checks_total",
		Help:      "Artifact verification checks by status",
	}, []string{"status"})
)

func ObserveHTTP(method, route, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func ObserveFingerprint(alg domain.Algorithm, size int64, elapsed time.Duration) {
	fingerprintBytes.WithLabelValues(string(alg)).Add(float64(size))
	fingerprintDuration.WithLabelValues(string(alg)).Observe(elapsed.Seconds())
}

func RecordRegistration(outcome string) {
	registrations.WithLabelValues(outcome).Inc()
}

func RecordEdgeOp(op string, err error) {
	edgeOps.WithLabelValues(op, errorOutcome(err)).Inc()
}

func SetGraphVersion(v uint64) {
	graphVersion.Set(float64(v))
}

func RecordTraversal(direction string, complete bool) {
	c := "true"
	if !complete {
		c = "false"
	}
	traversals.WithLabelValues(direction, c).Inc()
}

func RecordSnapshotBuild(outcome string, components int) {
	snapshots.WithLabelValues(outcome).Inc()
	if outcome != "error" {
		snapshotComponents.Observe(float64(components))
	}
}

func RecordVerification(status string) {
	verifications.WithLabelValues(status).Inc()
}

func errorOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrCycleDetected):
		return "cycle"
	case errors.Is(err, domain.ErrUnknownComponent):
		return "unknown"
	case errors.Is(err, domain.ErrEdgeNotFound):
		return "not_found"
	}
	return "error"
}
