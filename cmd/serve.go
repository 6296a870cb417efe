package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/truthschool/prepscore/internal/adapters/http/api"
	service "github.com/truthschool/prepscore/internal/app"
	"github.com/truthschool/prepscore/internal/config"
	"github.com/truthschool/prepscore/pkg/logger"
	"github.com/truthschool/prepscore/pkg/tracing"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg)
}

// serve runs the service and HTTP server until ctx is cancelled, then
// shuts both down within cfg.ShutdownTimeout.
func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.Get().Named("main")

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: "prepscore",
		Version:     version,
		Stdout:      cfg.TraceStdout,
	})
	if err != nil {
		return err
	}

	svc, err := service.NewFromConfig(ctx, cfg)
	if err != nil {
		return errors.Join(err, shutdownTracing(context.Background()))
	}
	if err := svc.Start(ctx); err != nil {
		return errors.Join(fmt.Errorf("start service: %w", err),
			svc.Stop(context.Background()), shutdownTracing(context.Background()))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
		log.Info(context.Background(), "server stopped")
		return errors.Join(errs...)
	})
	return g.Wait()
}

func newHandler(svc *service.Service, cfg *config.Config) http.Handler {
	return api.NewServer(svc, svc,
		api.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		api.WithIntakeRate(cfg.IntakeRatePerSec, cfg.IntakeBurst),
	).Handler()
}
