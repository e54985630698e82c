package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rigflow/rigflow/internal/config"
	"github.com/rigflow/rigflow/internal/metrics"
	"github.com/rigflow/rigflow/internal/server"
	"github.com/rigflow/rigflow/internal/ws"
)

const shutdownGrace = 10 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Rigflow API server",
		Long:  "Start the HTTP API, the WebSocket event stream and the Prometheus metrics endpoint.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	return cmd
}

func runServe(cfg *config.Config) error {
	app, err := newAppContext(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	metricsSub := m.Observe(app.Bus)
	defer metricsSub.Unsubscribe()

	hub := ws.NewHub(app.Log, m.WSClients)
	go hub.Run(ctx)
	hubSub := hub.Attach(app.Bus)
	defer hubSub.Unsubscribe()

	srv := server.New(server.Options{
		Config:     cfg,
		Log:        app.Log,
		Engine:     app.Engine,
		Registry:   app.Registry,
		Catalog:    app.Catalog,
		Pipelines:  app.Pipelines,
		Composites: app.Composites,
		Hub:        hub,
		Metrics:    m,
		Version:    version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
