package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/dataviz/internal/config"
	"github.com/JonMunkholm/dataviz/internal/core"
	"github.com/JonMunkholm/dataviz/internal/format"
	"github.com/JonMunkholm/dataviz/internal/logging"
	"github.com/JonMunkholm/dataviz/internal/source"
	"github.com/JonMunkholm/dataviz/internal/tracing"
	"github.com/JonMunkholm/dataviz/internal/web"
	"github.com/JonMunkholm/dataviz/internal/widget"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"load_max_concurrent", cfg.Load.MaxConcurrent,
		"fetch_timeout", cfg.Load.FetchTimeout,
		"max_message_size", cfg.Server.MaxMessageSize,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"tracing_enabled", cfg.Tracing.Enabled,
	)

	shutdownTracing, err := tracing.Setup(cfg.Tracing, tracing.Options{Logger: logger})
	if err != nil {
		return err
	}

	tags := format.Tags()
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.String()
	}
	logger.Info("formats registered", "count", len(tags), "formats", names)

	service := core.NewService(
		source.NewResolver(source.Options{
			Timeout:  cfg.Load.FetchTimeout,
			MaxBytes: cfg.Load.MaxFetchSize,
			Logger:   logger,
		}),
		widget.NewExplorer(widget.Config{
			MaxCells:    cfg.Widget.MaxCells,
			PreviewRows: cfg.Widget.PreviewRows,
			Scripts:     cfg.Widget.ScriptURLs,
			Theme:       cfg.Widget.Theme,
		}),
		core.ServiceOptions{
			MaxConcurrent: cfg.Load.MaxConcurrent,
			MaxWait:       cfg.Load.MaxWaitTime,
			IdleTTL:       cfg.Session.IdleTTL,
			Observer:      core.NewMetrics(prometheus.DefaultRegisterer),
			Logger:        logger,
		},
	)

	server := web.NewServer(service, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		return service.RunReaper(gctx, cfg.Session.ReapInterval)
	})
	g.Go(func() error {
		return server.RunJanitors(gctx)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.Limiter().Status(); status.Active > 0 {
			logger.Info("waiting for loads to complete", "active", status.Active)
			if err := service.Drain(shutdownCtx); err != nil {
				logger.Warn("loads did not complete in time", "error", err)
			}
		}

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}
