// Copyright 2026 SiaLedger Authors
//
// Package metrics provides an in-process Prometheus collector for the
// verifier and builder CLIs. It never binds a network listener: bundle
// verification is an offline, single-shot operation, so metrics are
// gathered into a local registry and, when enabled, rendered to a
// point-in-time text-exposition snapshot file instead of being scraped.
package metrics

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Collector tracks verification run outcomes and durations.
type Collector struct {
	registry    *prometheus.Registry
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
}

// NewCollector builds a Collector registered against its own private
// registry, isolated from any process-wide default registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auditbundle_verify_runs_total",
		Help: "Total bundle verification runs by outcome.",
	}, []string{"outcome", "error_code"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "auditbundle_verify_duration_seconds",
		Help:    "Bundle verification wall-clock duration in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(runsTotal, runDuration)

	return &Collector{registry: registry, runsTotal: runsTotal, runDuration: runDuration}
}

// ObservePass records a successful verification run.
func (c *Collector) ObservePass(durationSeconds float64) {
	c.runsTotal.WithLabelValues("pass", "").Inc()
	c.runDuration.Observe(durationSeconds)
}

// ObserveFail records a failed verification run tagged with its error code.
func (c *Collector) ObserveFail(errorCode string, durationSeconds float64) {
	c.runsTotal.WithLabelValues("fail", errorCode).Inc()
	c.runDuration.Observe(durationSeconds)
}

// WriteTo renders a Prometheus text-exposition snapshot of the collector's
// current state to path. Intended for operators who want the same metrics
// surface a long-running service would expose, without opening a socket.
func (c *Collector) WriteTo(path string) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics snapshot: %w", err)
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metric family: %w", err)
		}
	}
	return nil
}
