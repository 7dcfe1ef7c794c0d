// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the engine's Prometheus metrics.
type Collector struct {
	scansStarted prometheus.Counter
	scanOutcomes *prometheus.CounterVec
	findings     *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		scansStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "orphanage_scans_started_total",
			Help: "Number of scans started.",
		}),
		scanOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orphanage_scans_finished_total",
			Help: "Number of scans finished, by outcome.",
		}, []string{"outcome"}),
		findings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orphanage_findings_total",
			Help: "Findings written, by backend and kind.",
		}, []string{"backend", "kind"}),
	}
}

func (c *Collector) ScanStarted() {
	c.scansStarted.Inc()
}

func (c *Collector) ScanFinished(outcome string) {
	c.scanOutcomes.WithLabelValues(outcome).Inc()
}

func (c *Collector) AddFindings(backend, kind string, count int) {
	c.findings.WithLabelValues(backend, kind).Add(float64(count))
}
