package digest

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dkoval/newsherald/internal/store"
	"github.com/dkoval/newsherald/pkg/feed"
	"github.com/dkoval/newsherald/pkg/subscribe"
)

// Store is the subset of persistence the digest scheduler reads.
type Store interface {
	ListItems(ctx context.Context, opts store.ListOpts) ([]feed.Item, error)
	ListSubscriptions(ctx context.Context) ([]subscribe.Subscription, error)
	ListCategoryPrefs(ctx context.Context) ([]subscribe.CategoryPref, error)
	ListProfiles(ctx context.Context) ([]subscribe.Profile, error)
}

// Sender delivers one aggregate message to one user with bounded
// retry and idempotent redelivery.
type Sender interface {
	DeliverDigest(ctx context.Context, userID int64, leadItemID, text string) error
}

// Scheduler checks every minute whether the current UTC time-of-day
// matches any user's configured digest slot and fires those digests.
// A missed or failed digest is not carried over to the next slot.
type Scheduler struct {
	store      Store
	sender     Sender
	summarizer Summarizer
	log        *slog.Logger
	cron       *cron.Cron
	now        func() time.Time
}

// NewScheduler creates a digest scheduler. summarizer may be nil.
func NewScheduler(st Store, sender Sender, summarizer Summarizer, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:      st,
		sender:     sender,
		summarizer: summarizer,
		log:        log.With("component", "digest"),
		cron:       cron.New(cron.WithLocation(time.UTC)),
		now:        time.Now,
	}
}

// Start begins the per-minute slot check.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.Fire(ctx, s.now().UTC())
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the slot check.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Fire runs one slot check for the given UTC instant: users whose
// local digest time maps to this minute each get one batched message
// built from the trailing window's top candidates. Users with zero
// eligible items receive nothing.
func (s *Scheduler) Fire(ctx context.Context, now time.Time) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		s.log.Error("list profiles failed", "error", err)
		return
	}

	slot := now.Format("15:04")
	var due []subscribe.Profile
	for _, p := range profiles {
		if !p.DigestEnabled {
			continue
		}
		userSlot, err := SlotUTC(p.DigestTime, p.Timezone, now)
		if err != nil {
			s.log.Error("bad digest config, skipping user", "user", p.UserID, "error", err)
			continue
		}
		if userSlot == slot {
			due = append(due, p)
		}
	}
	if len(due) == 0 {
		return
	}

	candidates, err := s.store.ListItems(ctx, store.ListOpts{
		Since:         now.Add(-Window),
		MinImportance: subscribe.DigestFloor,
		Limit:         TopN,
	})
	if err != nil {
		s.log.Error("list digest candidates failed", "error", err)
		return
	}
	if len(candidates) == 0 {
		return
	}

	subs, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		s.log.Error("list subscriptions failed", "error", err)
		return
	}
	prefs, err := s.store.ListCategoryPrefs(ctx)
	if err != nil {
		s.log.Error("list category prefs failed", "error", err)
		return
	}

	// Digests are budget-exempt, so no budget lookup is wired in.
	ix := subscribe.NewIndex(subs, prefs, profiles, nil)

	summary := s.summarize(ctx, candidates)

	for _, p := range due {
		items := UserItems(ix, candidates, p.UserID)
		if len(items) == 0 {
			continue
		}

		text := Format(items, summary)
		if err := s.sender.DeliverDigest(ctx, p.UserID, items[0].ID, text); err != nil {
			s.log.Warn("digest delivery failed, slot closes", "user", p.UserID, "error", err)
			continue
		}
		s.log.Info("digest sent", "user", p.UserID, "items", len(items), "slot", slot)
	}
}

func (s *Scheduler) summarize(ctx context.Context, items []feed.Item) string {
	if s.summarizer == nil {
		return ""
	}
	headlines := make([]string, len(items))
	for i, item := range items {
		headlines[i] = item.Title
	}
	summary, err := s.summarizer.Summarize(ctx, headlines)
	if err != nil {
		s.log.Warn("summarizer failed, sending digest without summary", "error", err)
		return ""
	}
	return summary
}
