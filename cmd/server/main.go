package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/di"
	listingService "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/modules/listing/service"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"
	httpServer "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/transport/http"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/transport/telegram"
	"github.com/samber/do/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional, real environment variables win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env", "error", err)
	}

	// Setup dependency injection
	injector, err := di.Setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	logger, err := do.Invoke[*slog.Logger](injector)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg := do.MustInvoke[*config.Config](injector)
	slog.Info("Application starting",
		"started_at", time.Now().Format(time.RFC3339),
		"app_env", cfg.AppEnv,
		"storage_driver", cfg.StorageDriver,
		"poll_interval", cfg.PollInterval,
	)

	// Get services from DI container
	b, err := do.Invoke[*bot.Bot](injector)
	if err != nil {
		return err
	}
	poller, err := do.Invoke[*listingService.Poller](injector)
	if err != nil {
		return err
	}
	handler, err := do.Invoke[*telegram.Handler](injector)
	if err != nil {
		return err
	}

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	handler.Register(ctx, b)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.Start(ctx)
		return nil
	})

	g.Go(func() error {
		return poller.Run(ctx)
	})

	if cfg.HTTPPort != "" {
		server, err := do.Invoke[*httpServer.Server](injector)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return server.Start(ctx)
		})
	}

	slog.Info("Application started", "port", cfg.HTTPPort)
	slog.Info("Press Ctrl+C to stop")

	err = g.Wait()
	slog.Info("Shutting down...")
	return err
}
