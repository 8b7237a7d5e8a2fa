// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes Prometheus collectors over the module's
// core containers and resource pools, for cmd/ctxkit-bench's
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry groups every collector this module registers, so a
// program embedding ctxkit can wire them into its own
// *prometheus.Registry instead of the global default one.
type Registry struct {
	HeapSize     prometheus.Gauge
	TrieNodes    prometheus.Gauge
	TrieValues   prometheus.Gauge

	PoolOutstanding *prometheus.GaugeVec
	PoolPooled      *prometheus.GaugeVec
	PoolTotal       *prometheus.GaugeVec

	AutopoolShards      prometheus.Gauge
	AutopoolShardLatency *prometheus.GaugeVec

	LogQueueDepth prometheus.Gauge
	LogInFlight   prometheus.Gauge
}

// NewRegistry constructs every collector and registers them with reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		HeapSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctxkit",
			Subsystem: "heap",
			Name:      "size",
			Help:      "Number of elements currently held by the heap.",
		}),
		TrieNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctxkit",
			Subsystem: "trie",
			Name:      "nodes",
			Help:      "Number of structural nodes (internal and value-bearing) in the trie.",
		}),
		TrieValues: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctxkit",
			Subsystem: "trie",
			Name:      "values",
			Help:      "Number of value-bearing keys stored in the trie.",
		}),
		PoolOutstanding: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ctxkit",
			Subsystem: "pool",
			Name:      "outstanding",
			Help:      "Slabs currently handed out to callers, per shard.",
		}, []string{"shard"}),
		PoolPooled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ctxkit",
			Subsystem: "pool",
			Name:      "pooled",
			Help:      "Slabs currently idle on a shard's free list.",
		}, []string{"shard"}),
		PoolTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ctxkit",
			Subsystem: "pool",
			Name:      "total",
			Help:      "Slabs currently allocated (pooled + outstanding), per shard.",
		}, []string{"shard"}),
		AutopoolShards: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctxkit",
			Subsystem: "autopool",
			Name:      "shards",
			Help:      "Number of shards currently open in the auto-scaling pool.",
		}),
		AutopoolShardLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ctxkit",
			Subsystem: "autopool",
			Name:      "shard_latency_seconds",
			Help:      "Sliding-window average lock-acquisition latency, per shard.",
		}, []string{"shard"}),
		LogQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctxkit",
			Subsystem: "logio",
			Name:      "queue_depth",
			Help:      "Records currently queued for the async log writer.",
		}),
		LogInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctxkit",
			Subsystem: "logio",
			Name:      "writes_in_flight",
			Help:      "Asynchronous writes currently outstanding against the K-slot ring.",
		}),
	}

	reg.MustRegister(
		r.HeapSize, r.TrieNodes, r.TrieValues,
		r.PoolOutstanding, r.PoolPooled, r.PoolTotal,
		r.AutopoolShards, r.AutopoolShardLatency,
		r.LogQueueDepth, r.LogInFlight,
	)
	return r
}
