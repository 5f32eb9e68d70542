// Package scheduler drives the ingestion pipeline: poll feeds on a
// fixed interval, deduplicate, classify, persist, and fan out to the
// eligible recipients per delivery mode.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/dkoval/newsherald/internal/metrics"
	"github.com/dkoval/newsherald/internal/store"
	"github.com/dkoval/newsherald/pkg/classify"
	"github.com/dkoval/newsherald/pkg/dedup"
	"github.com/dkoval/newsherald/pkg/fanout"
	"github.com/dkoval/newsherald/pkg/feed"
	"github.com/dkoval/newsherald/pkg/subscribe"
)

// Scheduler runs the periodic ingestion batch.
type Scheduler struct {
	store    store.Store
	fetcher  *feed.Fetcher
	dedup    dedup.Deduplicator
	cls      *classify.Classifier
	fanout   *fanout.Manager
	log      *slog.Logger
	interval time.Duration
}

// New creates an ingestion scheduler.
func New(
	st store.Store,
	fetcher *feed.Fetcher,
	dd dedup.Deduplicator,
	cls *classify.Classifier,
	fm *fanout.Manager,
	log *slog.Logger,
	interval time.Duration,
) *Scheduler {
	if interval == 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		store:    st,
		fetcher:  fetcher,
		dedup:    dd,
		cls:      cls,
		fanout:   fm,
		log:      log.With("component", "scheduler"),
		interval: interval,
	}
}

// Run starts the poll loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start.
	s.log.Info("initial poll")
	s.PollOnce(ctx)

	s.log.Info("scheduler running", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.PollOnce(ctx)
		}
	}
}

// PollOnce runs one ingestion batch. Per-source and per-item failures
// are contained; only a store outage aborts the batch, and the next
// tick retries.
func (s *Scheduler) PollOnce(ctx context.Context) {
	sources, err := s.store.ListSources(ctx, true)
	if err != nil {
		s.log.Error("list sources failed, aborting batch", "error", err)
		return
	}
	if len(sources) == 0 {
		return
	}

	raw := s.fetcher.Poll(ctx, sources)
	metrics.ItemsFetched.Add(float64(len(raw)))

	now := time.Now().UTC()
	for _, src := range sources {
		if err := s.store.TouchSource(ctx, src.ID, now); err != nil {
			s.log.Warn("touch source failed", "source", src.Name, "error", err)
		}
	}

	if len(raw) == 0 {
		return
	}

	subs, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		s.log.Error("list subscriptions failed, aborting batch", "error", err)
		return
	}
	prefs, err := s.store.ListCategoryPrefs(ctx)
	if err != nil {
		s.log.Error("list category prefs failed, aborting batch", "error", err)
		return
	}
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		s.log.Error("list profiles failed, aborting batch", "error", err)
		return
	}

	stored := 0
	for _, r := range raw {
		if ok := s.processItem(ctx, r, subs, prefs, profiles); ok {
			stored++
		}
	}
	s.log.Info("batch done", "fetched", len(raw), "stored", stored)
}

// processItem takes one raw entry through dedup, classification,
// persistence and fanout. Returns true when a new item was stored.
func (s *Scheduler) processItem(
	ctx context.Context,
	r feed.RawItem,
	subs []subscribe.Subscription,
	prefs []subscribe.CategoryPref,
	profiles []subscribe.Profile,
) bool {
	if r.Title == "" || r.URL == "" || r.Fingerprint == "" {
		// Missing required fields after parse: fatal to this item only.
		s.log.Error("dropping malformed item", "url", r.URL, "source", r.SourceName)
		return false
	}

	seen, err := s.dedup.Seen(ctx, r.Fingerprint)
	if err != nil {
		s.log.Warn("dedup check failed, continuing as unseen", "error", err)
	}
	if seen {
		metrics.ItemsDeduplicated.Inc()
		return false
	}

	item := feed.Item{
		SourceID:    r.SourceID,
		SourceName:  r.SourceName,
		Category:    r.Category,
		Title:       r.Title,
		Body:        r.Body,
		URL:         r.URL,
		Fingerprint: r.Fingerprint,
		Urgent:      s.cls.Urgent(r.Title, r.Body, r.SourceName),
		Importance:  s.cls.Importance(r.Title, r.Body, r.SourceName),
		PublishedAt: r.PublishedAt,
		FetchedAt:   time.Now().UTC(),
	}
	if item.Importance < classify.MinScore || item.Importance > classify.MaxScore {
		s.log.Error("importance out of bounds, dropping item", "url", item.URL, "importance", item.Importance)
		return false
	}

	inserted, err := s.store.InsertItem(ctx, &item)
	if err != nil {
		s.log.Error("insert item failed", "url", item.URL, "error", err)
		return false
	}
	if !inserted {
		// URL or fingerprint already persisted: expected, silent skip.
		metrics.ItemsDeduplicated.Inc()
		return false
	}
	metrics.ItemsStored.Inc()

	// Budget counts are re-read per item so deliveries earlier in the
	// same batch count against the rolling window.
	counts, err := s.store.BudgetCounts(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		s.log.Error("budget counts failed, aborting fanout for item", "item", item.ID, "error", err)
		return true
	}
	ix := subscribe.NewIndex(subs, prefs, profiles, func(userID int64) int {
		return counts[userID]
	})

	regular := ix.Eligible(item, subscribe.ModeRegular)
	var urgent map[int64]struct{}
	if item.Urgent {
		urgent = ix.Eligible(item, subscribe.ModeUrgent)
	}

	live := make(map[int64]struct{}, len(regular)+len(urgent))
	for u := range regular {
		live[u] = struct{}{}
	}
	for u := range urgent {
		live[u] = struct{}{}
	}
	s.fanout.Broadcast(item, live)

	if len(urgent) > 0 {
		s.fanout.Deliver(ctx, item, urgent, "urgent")
		// One push per item per user: recipients already served on the
		// urgent channel drop out of the regular send.
		for u := range urgent {
			delete(regular, u)
		}
	}
	if len(regular) > 0 {
		s.fanout.Deliver(ctx, item, regular, "regular")
	}

	if err := s.store.MarkProcessed(ctx, item.ID); err != nil {
		s.log.Warn("mark processed failed", "item", item.ID, "error", err)
	}
	return true
}
