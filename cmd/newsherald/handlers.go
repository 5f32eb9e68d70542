package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkoval/newsherald/internal/config"
	"github.com/dkoval/newsherald/internal/logging"
	"github.com/dkoval/newsherald/internal/metrics"
	"github.com/dkoval/newsherald/internal/scheduler"
	"github.com/dkoval/newsherald/internal/store"
	"github.com/dkoval/newsherald/pkg/classify"
	"github.com/dkoval/newsherald/pkg/dedup"
	"github.com/dkoval/newsherald/pkg/digest"
	"github.com/dkoval/newsherald/pkg/fanout"
	"github.com/dkoval/newsherald/pkg/feed"
	"github.com/dkoval/newsherald/pkg/server"
	"github.com/dkoval/newsherald/pkg/summarize"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildClassifier(cfg *config.Config) *classify.Classifier {
	return classify.New(classify.Config{
		UrgencyKeywords:   cfg.Classify.UrgencyKeywords,
		AuthoritySources:  cfg.Classify.AuthoritySources,
		ExchangeSources:   cfg.Classify.ExchangeSources,
		AuthorityPatterns: cfg.Classify.AuthorityPatterns,
	})
}

func buildPushers(cfg *config.Config, log *slog.Logger) []fanout.Pusher {
	var pushers []fanout.Pusher

	if cfg.Push.Telegram.Enabled && cfg.Push.Telegram.Token != "" {
		tg, err := fanout.NewTelegram(cfg.Push.Telegram.Token)
		if err != nil {
			log.Error("telegram pusher disabled", "error", err)
		} else {
			pushers = append(pushers, tg)
		}
	}
	if cfg.Push.Webhook.Enabled && cfg.Push.Webhook.URL != "" {
		pushers = append(pushers, fanout.NewWebhook(cfg.Push.Webhook.URL, cfg.Push.Webhook.Secret))
	}

	return pushers
}

func buildSummarizer(cfg *config.Config) digest.Summarizer {
	if !cfg.Summary.Enabled || cfg.Summary.APIKey == "" {
		return nil
	}
	return summarize.New(cfg.Summary.Provider, cfg.Summary.Model, cfg.Summary.APIKey, cfg.Summary.BaseURL)
}

// seedSources creates any configured sources not yet present,
// matching by URL so restarts stay idempotent.
func seedSources(ctx context.Context, db store.Store, cfg *config.Config, log *slog.Logger) error {
	existing, err := db.ListSources(ctx, false)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, src := range existing {
		known[src.URL] = true
	}

	for _, sc := range cfg.Sources {
		if known[sc.URL] {
			continue
		}
		src := feed.Source{
			Name:         sc.Name,
			URL:          sc.URL,
			Category:     sc.Category,
			Priority:     sc.Priority,
			PollInterval: sc.PollInterval,
			Active:       true,
		}
		if err := db.CreateSource(ctx, &src); err != nil {
			return fmt.Errorf("seed source %s: %w", sc.Name, err)
		}
		log.Info("seeded source", "name", sc.Name, "category", sc.Category)
	}
	return nil
}

func runPoll() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Logging.Level)

	db, err := store.New(cfg.Database.Path, cfg.Schedule.ParseDedupTTL())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := seedSources(ctx, db, cfg, log); err != nil {
		return err
	}

	fetcher := feed.NewFetcher(log, cfg.Schedule.MaxInFlight, cfg.Schedule.ParseFetchTimeout())
	dd := dedup.NewFailOpen(db, log)
	fm := fanout.NewManager(buildPushers(cfg, log), nil, db, log, cfg.Push.MaxInFlight)

	sched := scheduler.New(db, fetcher, dd, buildClassifier(cfg), fm, log, cfg.Schedule.ParsePollInterval())
	sched.PollOnce(ctx)
	return nil
}

func runDigest() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Logging.Level)

	db, err := store.New(cfg.Database.Path, cfg.Schedule.ParseDedupTTL())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	fm := fanout.NewManager(buildPushers(cfg, log), nil, db, log, cfg.Push.MaxInFlight)
	ds := digest.NewScheduler(db, fm, buildSummarizer(cfg), log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ds.Fire(ctx, time.Now().UTC())
	return nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Logging.Level)

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path, cfg.Schedule.ParseDedupTTL())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	metrics.Register()
	hub := fanout.NewHub(log)

	log.Info("server listening", "port", port)
	return server.New(db, hub, port).ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Logging.Level)

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path, cfg.Schedule.ParseDedupTTL())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := seedSources(ctx, db, cfg, log); err != nil {
		return err
	}

	metrics.Register()

	hub := fanout.NewHub(log)
	fetcher := feed.NewFetcher(log, cfg.Schedule.MaxInFlight, cfg.Schedule.ParseFetchTimeout())
	dd := dedup.NewFailOpen(db, log)
	fm := fanout.NewManager(buildPushers(cfg, log), hub, db, log, cfg.Push.MaxInFlight)

	sched := scheduler.New(db, fetcher, dd, buildClassifier(cfg), fm, log, cfg.Schedule.ParsePollInterval())
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("scheduler stopped", "error", err)
		}
	}()

	ds := digest.NewScheduler(db, fm, buildSummarizer(cfg), log)
	if err := ds.Start(); err != nil {
		return fmt.Errorf("start digest scheduler: %w", err)
	}
	defer ds.Stop()

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
	}()

	log.Info("daemon running", "port", port)
	return server.New(db, hub, port).ListenAndServe()
}
