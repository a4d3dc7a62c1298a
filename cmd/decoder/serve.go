package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"contract-decoder/internal/bootstrap"
	"contract-decoder/internal/shared/server"
	"contract-decoder/internal/shared/telemetry"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := bootstrap.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			// No write timeout: analysis and chat responses are long-lived event streams.
			srv := &http.Server{
				Addr:              server.Addr(cfg.Port),
				Handler:           app.Router,
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       2 * time.Minute,
			}
			return serve(cmd.Context(), srv)
		},
	}
}

func serve(ctx context.Context, srv *http.Server) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		telemetry.Info("server listening", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		telemetry.Info("server shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
