package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"voxguard/internal/platform/httpserver"
	"voxguard/internal/platform/metrics"
	httptransport "voxguard/internal/transport/http"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, a, cleanup, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer cleanup()
			return runServe(ctx, a)
		},
	}
}

func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg
	if cfg.Server.AdminToken == "" {
		a.logger.Warn("no admin token configured; admin endpoints reject every request")
	}

	handler := httptransport.New(a.compliance, a.consent, a.rights, a.voice, a.retention, a.hasher,
		a.logger, httptransport.NewMetrics(a.reg))
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		AdminToken:     cfg.Server.AdminToken,
		MetricsHandler: metrics.Handler(a.reg),
	})

	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	srv := httpserver.New(cfg.Server.Addr, router)
	serveErr := httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, a.logger)

	// Stop accepting jobs only after the server drained, so in-flight
	// requests can still submit work.
	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	stopErr := a.scheduler.Stop(stopCtx)
	return errors.Join(serveErr, stopErr)
}
