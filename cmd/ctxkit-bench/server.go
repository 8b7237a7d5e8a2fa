// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vencik/ctxkit/internal/config"
	"github.com/vencik/ctxkit/pkg/autopool"
	"github.com/vencik/ctxkit/pkg/logio"
	"github.com/vencik/ctxkit/pkg/metrics"
	"github.com/vencik/ctxkit/pkg/trie"
)

// server holds the pieces wired together behind the HTTP mux: the
// auto-scaling slab pool under load, a demo trie callers can poke at
// over HTTP, and the metrics registry both feed.
type server struct {
	cfg     *config.Config
	metrics *metrics.Registry
	backend *logio.Backend

	autopool *autopool.Pool

	trieMu sync.Mutex
	trie   *trie.Trie[string]
}

func newServer(cfg *config.Config, reg prometheus.Registerer, backend *logio.Backend) (*server, error) {
	s := &server{
		cfg:     cfg,
		metrics: metrics.NewRegistry(reg),
		backend: backend,
		trie:    trie.New[string](),
	}
	s.autopool = autopool.New(cfg.AutopoolConfig(), func(msg string) {
		logio.Warn(msg)
	})
	return s, nil
}

// registerJobs wires periodic sweeps whose exact cadence is this
// server's own choice: reaping idle autopool shards and sampling the
// logio back-end's queue depth into the metrics registry. Jobs are
// registered against a scheduler started once by main.
func (s *server) registerJobs(sched gocron.Scheduler) {
	_, err := sched.NewJob(
		gocron.DurationJob(10*time.Second),
		gocron.NewTask(func() {
			n := s.autopool.ReapIdle()
			if n > 0 {
				logio.Infof("reaped %d idle autopool shard(s)", n)
			}
		}),
	)
	if err != nil {
		logio.Errorf("failed to register shard-reaper job: %v", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(2*time.Second),
		gocron.NewTask(func() {
			s.metrics.LogQueueDepth.Set(float64(s.backend.QueueDepth()))
			s.metrics.LogInFlight.Set(float64(s.backend.InFlight()))
			s.sampleAutopool()
			s.sampleTrie()
		}),
	)
	if err != nil {
		logio.Errorf("failed to register metrics-sampler job: %v", err)
	}
}

func (s *server) sampleAutopool() {
	snaps := s.autopool.ShardSnapshots()
	s.metrics.AutopoolShards.Set(float64(len(snaps)))
	for _, sh := range snaps {
		label := fmt.Sprintf("%d", sh.Index)
		s.metrics.PoolOutstanding.WithLabelValues(label).Set(float64(sh.Stats.Outstanding))
		s.metrics.PoolPooled.WithLabelValues(label).Set(float64(sh.Stats.Pooled))
		s.metrics.PoolTotal.WithLabelValues(label).Set(float64(sh.Stats.Pooled + sh.Stats.Outstanding))
		s.metrics.AutopoolShardLatency.WithLabelValues(label).Set(sh.Latency.Seconds())
	}
}

func (s *server) sampleTrie() {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	s.metrics.TrieValues.Set(float64(s.trie.Len()))
}

func (s *server) registerRoutes(r *mux.Router, reg *prometheus.Registry) {
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/debug/pools", s.handleDebugPools).Methods(http.MethodGet)
	r.HandleFunc("/debug/trie", s.handleDebugTrie).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)
	r.HandleFunc("/slab", s.handleSlab).Methods(http.MethodPost)
}

func (s *server) handleDebugPools(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"outstanding": s.autopool.Outstanding(),
		"shardCount":  s.autopool.ShardCount(),
		"shards":      s.autopool.ShardSnapshots(),
	})
}

// handleSlab allocates and immediately frees one slab from the
// auto-scaling pool, a cheap way to drive load against it from a
// benchmarking tool such as hey or wrk.
func (s *server) handleSlab(w http.ResponseWriter, req *http.Request) {
	h, err := s.autopool.Alloc()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.autopool.Free(h)
	w.WriteHeader(http.StatusNoContent)
}

// handleDebugTrie is a small key/value surface over the demo trie:
// GET lists every stored key in iteration order, PUT inserts
// ?key=...&value=..., DELETE removes ?key=....
func (s *server) handleDebugTrie(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		s.trieMu.Lock()
		out := make(map[string]string, s.trie.Len())
		for it := s.trie.Iter(); !it.AtEnd(); it.Next() {
			v, err := it.Value()
			if err != nil {
				continue
			}
			out[string(it.Key())] = v
		}
		s.trieMu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)

	case http.MethodPut:
		key := req.URL.Query().Get("key")
		value := req.URL.Query().Get("value")
		if key == "" {
			http.Error(w, "key is required", http.StatusBadRequest)
			return
		}
		s.trieMu.Lock()
		s.trie.Insert([]byte(key), value)
		s.trieMu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		key := req.URL.Query().Get("key")
		s.trieMu.Lock()
		s.trie.Remove([]byte(key))
		s.trieMu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}
