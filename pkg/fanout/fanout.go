// Package fanout delivers classified items to eligible recipients:
// best-effort live broadcast to connected sessions and per-user push
// with bounded retry and rolling-budget accounting.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dkoval/newsherald/internal/metrics"
	"github.com/dkoval/newsherald/pkg/feed"
)

// Pusher delivers one message to one recipient over an external
// channel with its own rate limits and transient-error semantics.
type Pusher interface {
	Name() string
	Push(ctx context.Context, userID int64, text string) error
}

// DeliveryStore records per-(user, item, channel) deliveries so
// retries stay idempotent and the budget counter stays monotonic.
type DeliveryStore interface {
	RecordDelivery(ctx context.Context, userID int64, itemID, channel string, at time.Time) (bool, error)
	DeleteDelivery(ctx context.Context, userID int64, itemID, channel string) error
}

const (
	maxPushAttempts = 3
	retryBackoff    = 2 * time.Second
)

// Manager fans one item out to a set of user ids. Per-recipient
// failure domains are isolated: one blocked account never halts
// delivery to the rest.
type Manager struct {
	pushers []Pusher
	hub     *Hub
	store   DeliveryStore
	log     *slog.Logger
	sem     *semaphore.Weighted
	backoff time.Duration
}

// NewManager creates a fanout manager. hub may be nil (no live
// broadcast), pushers may be empty (no push channel).
func NewManager(pushers []Pusher, hub *Hub, store DeliveryStore, log *slog.Logger, maxInFlight int) *Manager {
	if maxInFlight <= 0 {
		maxInFlight = 16
	}
	return &Manager{
		pushers: pushers,
		hub:     hub,
		store:   store,
		log:     log.With("component", "fanout"),
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
		backoff: retryBackoff,
	}
}

// HasPushers reports whether any push channel is configured.
func (m *Manager) HasPushers() bool { return len(m.pushers) > 0 }

// Broadcast publishes the item to the eligible connected live
// sessions. Fire-and-forget: one encode, N sends, no retries, no
// budget accounting.
func (m *Manager) Broadcast(item feed.Item, eligible map[int64]struct{}) {
	if m.hub == nil {
		return
	}
	n := m.hub.Broadcast(item, eligible)
	if n > 0 {
		metrics.Sent.WithLabelValues("live").Add(float64(n))
	}
}

// Deliver pushes the item to every user id on the given channel
// (regular or urgent). A successful send keeps its delivery record,
// which is what increments the user's rolling budget; a failed send
// rolls the record back.
func (m *Manager) Deliver(ctx context.Context, item feed.Item, userIDs map[int64]struct{}, channel string) {
	if len(m.pushers) == 0 || len(userIDs) == 0 {
		return
	}

	text := FormatItem(item)

	var wg sync.WaitGroup
	for userID := range userIDs {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			if err := m.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer m.sem.Release(1)
			m.deliverOne(ctx, item, userID, channel, text)
		}(userID)
	}
	wg.Wait()
}

func (m *Manager) deliverOne(ctx context.Context, item feed.Item, userID int64, channel, text string) {
	fresh, err := m.store.RecordDelivery(ctx, userID, item.ID, channel, time.Now().UTC())
	if err != nil {
		m.log.Warn("delivery record failed", "user", userID, "item", item.ID, "error", err)
		return
	}
	if !fresh {
		// Already delivered on this channel; redelivery must not
		// double-send nor double-count.
		return
	}

	if err := m.push(ctx, userID, text); err != nil {
		m.log.Warn("push failed", "user", userID, "item", item.ID, "channel", channel, "error", err)
		metrics.SendFailures.WithLabelValues(channel).Inc()
		if delErr := m.store.DeleteDelivery(ctx, userID, item.ID, channel); delErr != nil {
			m.log.Warn("delivery rollback failed", "user", userID, "item", item.ID, "error", delErr)
		}
		return
	}

	metrics.Sent.WithLabelValues(channel).Inc()
}

// push tries every configured pusher with bounded retry per pusher.
// One pusher succeeding counts as delivered.
func (m *Manager) push(ctx context.Context, userID int64, text string) error {
	var errs []error
	for _, p := range m.pushers {
		var lastErr error
		for attempt := 1; attempt <= maxPushAttempts; attempt++ {
			lastErr = p.Push(ctx, userID, text)
			if lastErr == nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt < maxPushAttempts {
				select {
				case <-time.After(m.backoff * time.Duration(attempt)):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), lastErr))
	}
	return errors.Join(errs...)
}

// DeliverDigest sends one aggregate message to one user. The digest
// channel is exempt from the rolling budget; the delivery record is
// keyed on the digest's lead item so a re-fired slot stays idempotent.
func (m *Manager) DeliverDigest(ctx context.Context, userID int64, leadItemID, text string) error {
	fresh, err := m.store.RecordDelivery(ctx, userID, leadItemID, "digest", time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record digest delivery: %w", err)
	}
	if !fresh {
		return nil
	}

	if err := m.push(ctx, userID, text); err != nil {
		metrics.SendFailures.WithLabelValues("digest").Inc()
		if delErr := m.store.DeleteDelivery(ctx, userID, leadItemID, "digest"); delErr != nil {
			m.log.Warn("digest rollback failed", "user", userID, "error", delErr)
		}
		return err
	}

	metrics.Sent.WithLabelValues("digest").Inc()
	metrics.DigestsSent.Inc()
	return nil
}

// FormatItem renders one item as a push message.
func FormatItem(item feed.Item) string {
	marker := ""
	if item.Urgent {
		marker = "🚨 "
	}
	return fmt.Sprintf("%s*%s*\n%s\nImportance: %d/5 | %s\n%s",
		marker, item.Title, item.SourceName, item.Importance, item.Category, item.URL)
}
