package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/suspectuso/parqr-companion/internal/config"
	"github.com/suspectuso/parqr-companion/internal/feed"
	"github.com/suspectuso/parqr-companion/internal/identity"
	"github.com/suspectuso/parqr-companion/internal/inbox"
	"github.com/suspectuso/parqr-companion/internal/metrics"
	"github.com/suspectuso/parqr-companion/internal/notifier"
	"github.com/suspectuso/parqr-companion/internal/parqrapi"
	"github.com/suspectuso/parqr-companion/internal/storage"
	"github.com/suspectuso/parqr-companion/internal/telegram"
	"github.com/suspectuso/parqr-companion/internal/webhook"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	// Load config
	cfg := config.Load()

	// Setup logger
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(log)

	if envErr != nil {
		log.Debug("no .env file found")
	}

	if cfg.BotToken == "" {
		log.Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	// Initialize storage
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Error("init storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("storage initialized", "path", cfg.DBPath)

	// Initialize parQR API client
	api := parqrapi.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	log.Info("parqr api client initialized", "base_url", cfg.APIBaseURL)

	m := metrics.New(prometheus.DefaultRegisterer)

	resolver := identity.NewResolver(
		identity.WithProductionBaseURL(cfg.ProfileBaseURL),
		identity.WithCustomScheme(cfg.URIScheme),
	)

	// Initialize telegram bot
	bot, err := telegram.New(cfg, store, api, resolver, m, log)
	if err != nil {
		log.Error("init telegram bot", "error", err)
		os.Exit(1)
	}
	log.Info("telegram bot initialized")

	// Initialize notifier
	poller := feed.NewPoller(log, feed.WithMetrics(m))
	sessions := notifier.New(api, poller, bot, store, log, m,
		inbox.WithInterval(feed.ChannelChat, cfg.ChatPollInterval),
		inbox.WithInterval(feed.ChannelMoveRequest, cfg.MoveRequestPollInterval),
	)
	bot.SetSessions(sessions)

	tierWatcher := notifier.NewTierWatcher(api, store, sessions, log)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sessions.RestoreAll(ctx); err != nil {
		log.Error("restore sessions", "error", err)
	}
	go sessions.Run(ctx)

	// Start webhook server
	webhookServer := webhook.NewServer(tierWatcher, cfg.WebhookSecret, prometheus.DefaultGatherer, log)
	go func() {
		if err := webhookServer.Start(ctx, cfg.WebhookPort); err != nil && err != http.ErrServerClosed {
			log.Error("webhook server", "error", err)
		}
	}()

	// Start tier watcher
	go tierWatcher.Start(ctx, cfg.TierSyncInterval)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	// Start bot polling
	log.Info("starting bot polling...")
	bot.Start(ctx)

	sessions.Shutdown()
}
