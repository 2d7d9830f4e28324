/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/llm-d/diet-formulator/internal/config"
	"github.com/llm-d/diet-formulator/internal/logging"
	"github.com/llm-d/diet-formulator/internal/metrics"
	"github.com/llm-d/diet-formulator/internal/optimizer"
)

const maxRequestBytes = 8 << 20

type serveOptions struct {
	addr            string
	shutdownTimeout time.Duration
	profilesPath    string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve formulations over HTTP",
		Long: `Start an HTTP server exposing:

  POST /v1/formulations   formulate a problem (JSON body, same shape as a problem file)
  GET  /metrics           Prometheus metrics
  GET  /healthz           liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
	cmd.Flags().StringVar(&opts.profilesPath, "profiles", "", "YAML file of additional diet profiles")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts *serveOptions) error {
	profiles, err := loadProfiles(opts.profilesPath)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, err := newServer(root.cfg, profiles, reg, root.logger)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		root.logger.Info("Serving formulations", "addr", opts.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	root.logger.Info("Shutting down", "timeout", opts.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// server handles formulation requests for one shared Formulator.
type server struct {
	formulator *optimizer.Formulator
	profiles   config.DietProfileData
	logger     logr.Logger
}

// newServer wires the formulation, metrics, and health endpoints. Formulation
// metrics are registered on reg.
func newServer(cfg config.FormulatorConfig, profiles config.DietProfileData,
	reg *prometheus.Registry, logger logr.Logger) (http.Handler, error) {

	f, err := optimizer.NewFormulator(cfg,
		optimizer.WithRecorder(metrics.NewRecorder(reg)),
		optimizer.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	s := &server{formulator: f, profiles: profiles, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/formulations", s.formulate)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux, nil
}

func (s *server) formulate(w http.ResponseWriter, r *http.Request) {
	var problem Problem
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&problem); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	ctx := logr.NewContext(r.Context(), s.logger.WithValues("remote", r.RemoteAddr))
	req, err := problem.Request(ctx, s.profiles)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res := s.formulator.Formulate(ctx, req)
	s.logger.V(logging.VERBOSE).Info("Served formulation", "status", res.Status, "success", res.Success)
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
