package dedup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// KeyPrefix namespaces dedup entries in shared key-value backends.
const KeyPrefix = "dedup:"

// DefaultTTL is the retention window after which a repeat fingerprint
// is treated as new again.
const DefaultTTL = 24 * time.Hour

// Deduplicator answers "seen before?" for a fingerprint, marking it
// seen atomically when it was not. Check-and-set must be a single
// operation so two concurrent polls cannot both observe "not seen".
type Deduplicator interface {
	Seen(ctx context.Context, fingerprint string) (bool, error)
}

// Memory is an in-process deduplicator with per-entry expiry.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-memory deduplicator. ttl <= 0 uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Seen reports whether the fingerprint was marked within the TTL and
// marks it when not. The check and the mark happen under one lock.
func (m *Memory) Seen(_ context.Context, fingerprint string) (bool, error) {
	key := KeyPrefix + fingerprint
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.entries[key]; ok && exp.After(now) {
		return true, nil
	}

	// Expired entries are swept lazily while we hold the lock anyway.
	if len(m.entries) > 4096 {
		for k, exp := range m.entries {
			if !exp.After(now) {
				delete(m.entries, k)
			}
		}
	}

	m.entries[key] = now.Add(m.ttl)
	return false, nil
}

// FailOpen wraps a deduplicator so backend failures degrade to
// "not seen": duplicate processing is risked, losing all new content
// during an outage is not.
type FailOpen struct {
	next Deduplicator
	log  *slog.Logger
}

// NewFailOpen wraps next with fail-open error handling.
func NewFailOpen(next Deduplicator, log *slog.Logger) *FailOpen {
	return &FailOpen{next: next, log: log.With("component", "dedup")}
}

func (f *FailOpen) Seen(ctx context.Context, fingerprint string) (bool, error) {
	seen, err := f.next.Seen(ctx, fingerprint)
	if err != nil {
		f.log.Warn("dedup backend unavailable, treating as unseen", "error", err)
		return false, nil
	}
	return seen, nil
}
