// Command analyticsbase serves the analytics ingest API.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	runtimepkg "github.com/drblury/analyticsbase/internal/runtime"
	"github.com/drblury/analyticsbase/internal/runtime/config"
	loggingpkg "github.com/drblury/analyticsbase/internal/runtime/logging"
	"github.com/drblury/analyticsbase/internal/runtime/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	base, err := loggingpkg.NewSlog(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	logger := loggingpkg.NewSlogServiceLogger(base)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cfg, logger); err != nil {
		logger.Error("analyticsbase stopped", err, nil)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger loggingpkg.ServiceLogger) error {
	tp, shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, cfg.OTelServiceName)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("Failed to flush traces", err, nil)
		}
	}()

	svc, err := runtimepkg.NewService(cfg, logger, ctx, runtimepkg.ServiceDependencies{
		TracerProvider: tp,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close service", err, nil)
		}
	}()

	if err := svc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("analyticsbase stopped", nil)
	return nil
}
