// Package metrics exposes service counters through a Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pixelfield"

// Canvas holds the canvas service instruments on a private registry so two
// service instances in one process (tests) never collide.
type Canvas struct {
	registry *prometheus.Registry

	cellsPlaced        prometheus.Counter
	snapshotsCreated   prometheus.Counter
	collectiblesMinted prometheus.Counter
	mutationFailures   *prometheus.CounterVec
	feedClients        prometheus.Gauge
	feedDrops          prometheus.Counter
}

// NewCanvas constructs the canvas instrument set with process and Go runtime
// collectors attached.
func NewCanvas() *Canvas {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Canvas{
		registry: registry,
		cellsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "canvas",
			Name:      "cells_placed_total",
			Help:      "Total accepted cell writes",
		}),
		snapshotsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "canvas",
			Name:      "snapshots_created_total",
			Help:      "Total snapshots registered",
		}),
		collectiblesMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "canvas",
			Name:      "collectibles_minted_total",
			Help:      "Total collectibles minted",
		}),
		mutationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "canvas",
			Name:      "mutation_failures_total",
			Help:      "Rejected mutating calls by error code",
		}, []string{"code"}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "clients",
			Help:      "Connected live-feed subscribers",
		}),
		feedDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "drops_total",
			Help:      "Feed messages dropped on slow subscribers",
		}),
	}
	registry.MustRegister(
		c.cellsPlaced,
		c.snapshotsCreated,
		c.collectiblesMinted,
		c.mutationFailures,
		c.feedClients,
		c.feedDrops,
	)
	return c
}

// Handler serves the registry in Prometheus exposition format.
func (c *Canvas) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordCellPlaced counts an accepted cell write.
func (c *Canvas) RecordCellPlaced() {
	if c == nil {
		return
	}
	c.cellsPlaced.Inc()
}

// RecordSnapshotCreated counts a registered snapshot.
func (c *Canvas) RecordSnapshotCreated() {
	if c == nil {
		return
	}
	c.snapshotsCreated.Inc()
}

// RecordCollectibleMinted counts a minted collectible.
func (c *Canvas) RecordCollectibleMinted() {
	if c == nil {
		return
	}
	c.collectiblesMinted.Inc()
}

// RecordMutationFailure counts a rejected mutating call by error code.
func (c *Canvas) RecordMutationFailure(code string) {
	if c == nil {
		return
	}
	c.mutationFailures.WithLabelValues(code).Inc()
}

// FeedClientConnected tracks a live-feed subscriber arriving.
func (c *Canvas) FeedClientConnected() {
	if c == nil {
		return
	}
	c.feedClients.Inc()
}

// FeedClientDisconnected tracks a live-feed subscriber leaving.
func (c *Canvas) FeedClientDisconnected() {
	if c == nil {
		return
	}
	c.feedClients.Dec()
}

// RecordFeedDrop counts a message dropped on a slow subscriber.
func (c *Canvas) RecordFeedDrop() {
	if c == nil {
		return
	}
	c.feedDrops.Inc()
}
