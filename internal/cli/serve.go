package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"titan/internal/handler"
	"titan/internal/httpserver"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tracker over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.serve(ctx)
			})
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.tracker.Start(ctx); err != nil {
		return err
	}

	router := httpserver.NewRouter(
		handler.NewTrackerHandler(a.tracker, a.logger),
		handler.NewCoachHandler(a.advisor, a.tracker, a.clock, a.logger),
		a.logger,
		a.readinessChecks(),
	)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}
	a.logger.Info("HTTP server stopped")

	// the background load must finish before the pool closes
	select {
	case <-a.tracker.Ready():
	case <-shutdownCtx.Done():
	}
	return nil
}

// readinessChecks reports the tracker load and each connected backend.
func (a *app) readinessChecks() map[string]httpserver.Check {
	checks := map[string]httpserver.Check{
		"tracker": func(ctx context.Context) error {
			select {
			case <-a.tracker.Ready():
				return nil
			default:
				return errors.New("state still loading")
			}
		},
	}
	if a.pool != nil {
		checks["db"] = func(ctx context.Context) error {
			return a.pool.Ping(ctx)
		}
	}
	if a.broker != nil {
		checks["mq"] = func(ctx context.Context) error {
			if !a.broker.IsConnected() {
				return errors.New("broker disconnected")
			}
			return nil
		}
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}
	}
	return checks
}
