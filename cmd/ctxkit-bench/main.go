// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ctxkit-bench is a small demo/benchmark server that wires
// the module's pool, autopool, trie and logio packages behind an HTTP
// mux, exposing a Prometheus /metrics endpoint alongside a couple of
// debug endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vencik/ctxkit/internal/config"
	"github.com/vencik/ctxkit/internal/netio"
	"github.com/vencik/ctxkit/pkg/logio"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration document")
	envPath := flag.String("env", "", "optional .env file to load before reading -config")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	flag.Parse()

	if *envPath != "" {
		if err := netio.LoadDotenv(*envPath); err != nil {
			fmt.Fprintf(os.Stderr, "ctxkit-bench: loading %s: %v\n", *envPath, err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ctxkit-bench: %v\n", err)
		os.Exit(1)
	}

	backend := logio.NewBackend()
	logger := logio.NewLogger(backend, cfg.Log.Path, cfg.LogLevel(), "")
	logio.SetDefault(logger)
	defer backend.Shutdown()

	reg := prometheus.NewRegistry()

	srv, err := newServer(cfg, reg, backend)
	if err != nil {
		logio.Errorf("failed to build server: %v", err)
		os.Exit(1)
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		logio.Errorf("failed to start scheduler: %v", err)
		os.Exit(1)
	}
	srv.registerJobs(sched)
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			logio.Warnf("scheduler shutdown: %v", err)
		}
	}()

	router := mux.NewRouter()
	srv.registerRoutes(router, reg)

	httpSrv := &http.Server{Addr: *addr, Handler: router}

	go func() {
		logio.Infof("listening on %s", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logio.Errorf("http server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logio.Warnf("http server shutdown: %v", err)
	}
}
