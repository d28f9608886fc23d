package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/metrics"
	"github.com/inodb/vibe-acmg/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the classification API over HTTP",
		Long: `Serve the classification API.

Endpoints:
  GET  /api/v1/classify?variant=<text>   classify one variant
  POST /api/v1/classify                  {"variants": [...]}
  GET  /api/v1/panels                    list gene panels
  GET  /api/v1/panels/<name>             panel rules
  GET  /metrics                          Prometheus metrics
  GET  /healthz                          liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f := cmd.Flags().Lookup("addr"); f.Changed {
				a.cfg.Server.Addr = f.Value.String()
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	s, err := a.newSession(m)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := server.New(s.engine, s.panels, reg)
	srv.SetLogger(a.logger)

	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           srv.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", zap.String("addr", a.cfg.Server.Addr), zap.Stringer("genome_build", a.cfg.Build()))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
