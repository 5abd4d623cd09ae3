package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bogdan-lmk/twsignals/internal/config"
	"github.com/bogdan-lmk/twsignals/internal/dedup"
	"github.com/bogdan-lmk/twsignals/internal/dispatch"
	"github.com/bogdan-lmk/twsignals/internal/server"
	"github.com/bogdan-lmk/twsignals/internal/telegram"
	"github.com/bogdan-lmk/twsignals/internal/version"
)

// shutdownGrace bounds how long an in-flight HTTP shutdown may take.
const shutdownGrace = 10 * time.Second

// App aggregates configuration and shared dependencies for the CLI
// commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newTelegramClient() *telegram.Client {
	cfg := a.Config.Telegram
	return telegram.New(telegram.Options{
		BotToken:       cfg.BotToken,
		ChatID:         cfg.ChatID,
		BaseURL:        cfg.APIBase,
		Timeout:        cfg.Timeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryDelay:     cfg.RetryDelay,
		RetryBackoff:   cfg.RetryBackoff,
		MessagesPerSec: cfg.MessagesPerSec,
	}, a.Logger)
}

// Run starts the webhook service and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := a.newTelegramClient()

	// Startup connectivity check mirrors the health probe: a broken
	// bot token is visible immediately but does not abort startup.
	probeCtx, probeCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := client.Ping(probeCtx); err != nil {
		a.Logger.Warn().Err(err).Msg("telegram connection test failed during startup")
	}
	probeCancel()

	cache := dedup.New(dedup.Options{
		TTL:              a.Config.Dedup.TTL,
		CleanupThreshold: a.Config.Dedup.CleanupThreshold,
	}, a.Logger)

	dispatcher := dispatch.New(dispatch.Options{
		Workers:   a.Config.Dispatch.Workers,
		QueueSize: a.Config.Dispatch.QueueSize,
	}, cache, client, a.Logger)
	dispatcher.Start(context.Background())

	srv := server.New(a.Config, version.Version, dispatcher, client, a.Logger)
	httpServer := &http.Server{
		Addr:              a.Config.Server.ListenAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", httpServer.Addr).
			Str("version", version.Version).
			Bool("verify_signature", a.Config.Webhook.VerifySignature).
			Msg("starting webhook service")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		dispatcher.Stop()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info().Msg("shutting down webhook service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("http server shutdown failed")
	}

	// Drain queued deliveries before exiting.
	dispatcher.Stop()

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.Logger.Info().Msg("webhook service stopped")
	return nil
}

// Probe checks Bot API connectivity and returns the outcome.
func (a *App) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return a.newTelegramClient().Ping(ctx)
}

// SendTest pushes a sample signal through the real delivery pipeline.
func (a *App) SendTest(ctx context.Context) error {
	sample := sampleAlert()
	a.Logger.Info().
		Str("ticker", sample.Ticker).
		Str("signal", string(sample.Signal)).
		Msg("sending test signal")

	result, err := a.newTelegramClient().Send(ctx, sample)
	if err != nil {
		return fmt.Errorf("send test signal: %w", err)
	}
	a.Logger.Info().Int64("message_id", result.MessageID).Msg("test signal delivered")
	return nil
}
