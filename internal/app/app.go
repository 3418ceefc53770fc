// Package app wires configuration into the running service: the scheduled
// feed pipeline, the realtime listener, and the webhook server, all sharing
// one model gateway and one delivery fanout.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"newsrelay/internal/config"
	"newsrelay/internal/dedupe"
	"newsrelay/internal/delivery"
	"newsrelay/internal/feed"
	"newsrelay/internal/language"
	"newsrelay/internal/llm"
	"newsrelay/internal/logger"
	"newsrelay/internal/metrics"
	"newsrelay/internal/pipeline"
	"newsrelay/internal/ratelimit"
	"newsrelay/internal/rater"
	"newsrelay/internal/realtime"
	"newsrelay/internal/relay"
	"newsrelay/internal/translator"
	"newsrelay/internal/webhook"
)

const (
	ingestSchedule  = "@every 1h"
	cleanupSchedule = "@every 3h"
	shutdownTimeout = 10 * time.Second
)

type App struct {
	cfg      *config.Config
	cron     *cron.Cron
	pipeline *pipeline.Pipeline
	listener *realtime.Listener
	server   *webhook.Server
	windows  []*dedupe.Window
}

// New builds the full object graph. Nothing starts running yet.
func New(cfg *config.Config) (*App, error) {
	sources, err := feed.LoadSources(cfg.FeedsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading feed sources: %w", err)
	}

	gateway := llm.New(llm.Options{
		APIKey:   cfg.OpenRouterAPIKey,
		Models:   cfg.Models,
		SiteURL:  cfg.SiteURL,
		SiteName: cfg.SiteName,
		Budget:   ratelimit.NewBudget(cfg.MaxModelRequests),
	})
	translations := translator.New(gateway)

	feedWindow := dedupe.NewWindow(cfg.FeedWindowTTL)
	messageWindow := dedupe.NewWindow(cfg.RealtimeWindowTTL)
	deliveryWindow := dedupe.NewWindow(cfg.DeliveryWindowTTL)

	var sender delivery.Sender = delivery.NewTelegram(cfg.TelegramToken)
	chatIDs := cfg.LanguageChatIDs
	if cfg.DevMode {
		sender = delivery.Console{}
		chatIDs = make(map[language.Code]string)
		for _, lang := range language.All() {
			chatIDs[lang] = "dev-" + string(lang)
		}
	}

	fanout := delivery.NewFanout(delivery.Options{
		Sender:      sender,
		ChatIDs:     chatIDs,
		Window:      deliveryWindow,
		Pace:        cfg.AlertPace,
		SendTimeout: cfg.SendTimeout,
	})

	feedFlow := pipeline.New(pipeline.Options{
		Fetcher:     feed.NewFetcher(cfg.FeedItemLimit),
		Rater:       rater.New(gateway),
		Translator:  translations,
		Fanout:      fanout,
		Window:      feedWindow,
		Sources:     sources,
		MinRating:   cfg.MinRating,
		MaxArticles: cfg.MaxArticles,
		Pace:        cfg.FeedPace,
	})

	processor := relay.New(translations, fanout, messageWindow)

	listener := realtime.NewListener(realtime.Options{
		URL:               cfg.RealtimeURL,
		AlertChannel:      cfg.AlertChannel,
		NewsChannel:       cfg.NewsChannel,
		AlertLang:         cfg.AlertLang,
		NewsLang:          cfg.NewsChannelLang,
		ReconnectBase:     cfg.ReconnectBase,
		ReconnectMax:      cfg.ReconnectMax,
		ReconnectAttempts: cfg.ReconnectAttempts,
	}, processor)

	return &App{
		cfg:      cfg,
		cron:     cron.New(),
		pipeline: feedFlow,
		listener: listener,
		server:   webhook.New(processor, cfg.AlertLang, cfg.NewsChannelLang),
		windows:  []*dedupe.Window{feedWindow, messageWindow, deliveryWindow},
	}, nil
}

// Run starts every surface and blocks until ctx is cancelled, then shuts
// down in order: scheduler first so no new cycle begins, then the HTTP
// server drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	for _, warning := range a.cfg.Warnings() {
		logger.Warn(warning)
	}

	// A panicking cycle must not take the scheduler or the process down.
	runIngest := func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("ingestion cycle panicked", "panic", rec)
				metrics.Global.SetError(fmt.Sprint(rec))
			}
		}()
		a.pipeline.Run(ctx)
	}

	if _, err := a.cron.AddFunc(ingestSchedule, runIngest); err != nil {
		return fmt.Errorf("scheduling ingestion: %w", err)
	}
	if _, err := a.cron.AddFunc(cleanupSchedule, a.cleanupWindows); err != nil {
		return fmt.Errorf("scheduling cleanup: %w", err)
	}
	a.cron.Start()

	serverErr := make(chan error, 1)
	if !a.cfg.DevMode {
		go a.listener.Run(ctx)
		go func() {
			serverErr <- a.server.Start(a.cfg.WebhookAddr)
		}()
	}

	// First cycle runs immediately; the schedule covers the rest.
	go runIngest()

	logger.Info("service started",
		"webhook_addr", a.cfg.WebhookAddr,
		"dev_mode", a.cfg.DevMode,
		"models", len(a.cfg.Models))

	select {
	case err := <-serverErr:
		a.cron.Stop()
		return fmt.Errorf("webhook server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	<-a.cron.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("webhook server shutdown", "error", err)
	}
	return nil
}

func (a *App) cleanupWindows() {
	removed := 0
	for _, w := range a.windows {
		removed += w.Cleanup()
	}
	logger.Debug("window cleanup done", "removed", removed)
}
