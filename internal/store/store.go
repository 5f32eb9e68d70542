package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/dkoval/newsherald/pkg/feed"
	"github.com/dkoval/newsherald/pkg/subscribe"
)

// ListOpts controls item listing.
type ListOpts struct {
	SourceID      string
	Category      string
	Since         time.Time
	MinImportance int
	Unprocessed   bool
	Limit         int
}

// Store is the persistence interface.
type Store interface {
	ListSources(ctx context.Context, onlyActive bool) ([]feed.Source, error)
	GetSource(ctx context.Context, id string) (*feed.Source, error)
	CreateSource(ctx context.Context, src *feed.Source) error
	UpdateSource(ctx context.Context, src *feed.Source) error
	DeactivateSource(ctx context.Context, id string) error
	TouchSource(ctx context.Context, id string, at time.Time) error

	InsertItem(ctx context.Context, item *feed.Item) (bool, error)
	ListItems(ctx context.Context, opts ListOpts) ([]feed.Item, error)
	MarkProcessed(ctx context.Context, id string) error

	ListSubscriptions(ctx context.Context) ([]subscribe.Subscription, error)
	ListCategoryPrefs(ctx context.Context) ([]subscribe.CategoryPref, error)
	ListProfiles(ctx context.Context) ([]subscribe.Profile, error)
	UpsertSubscription(ctx context.Context, sub *subscribe.Subscription) error
	UpsertProfile(ctx context.Context, p *subscribe.Profile) error

	RecordDelivery(ctx context.Context, userID int64, itemID, channel string, at time.Time) (bool, error)
	DeleteDelivery(ctx context.Context, userID int64, itemID, channel string) error
	BudgetCounts(ctx context.Context, since time.Time) (map[int64]int, error)

	Seen(ctx context.Context, fingerprint string) (bool, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db       *sqlx.DB
	dedupTTL time.Duration
}

// New opens a SQLite database and runs migrations.
func New(path string, dedupTTL time.Duration) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if dedupTTL <= 0 {
		dedupTTL = 24 * time.Hour
	}
	return &SQLiteStore{db: db, dedupTTL: dedupTTL}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListSources(ctx context.Context, onlyActive bool) ([]feed.Source, error) {
	q := sq.Select("*").From("feed_sources").OrderBy("priority DESC", "name")
	if onlyActive {
		q = q.Where(sq.Eq{"active": true})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sources: %w", err)
	}

	var sources []feed.Source
	if err := s.db.SelectContext(ctx, &sources, query, args...); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

func (s *SQLiteStore) GetSource(ctx context.Context, id string) (*feed.Source, error) {
	var src feed.Source
	err := s.db.GetContext(ctx, &src, "SELECT * FROM feed_sources WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", id, err)
	}
	return &src, nil
}

func (s *SQLiteStore) CreateSource(ctx context.Context, src *feed.Source) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_sources (id, name, url, category, priority, poll_interval_secs, active, last_polled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, src.ID, src.Name, src.URL, src.Category, src.Priority, src.PollInterval, src.Active, src.LastPolledAt)
	if err != nil {
		return fmt.Errorf("create source %s: %w", src.Name, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateSource(ctx context.Context, src *feed.Source) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE feed_sources SET name = ?, url = ?, category = ?, priority = ?, poll_interval_secs = ?, active = ?
		WHERE id = ?
	`, src.Name, src.URL, src.Category, src.Priority, src.PollInterval, src.Active, src.ID)
	if err != nil {
		return fmt.Errorf("update source %s: %w", src.ID, err)
	}
	return nil
}

// DeactivateSource soft-disables a source. Sources are never hard
// deleted while item history references them.
func (s *SQLiteStore) DeactivateSource(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE feed_sources SET active = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deactivate source %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) TouchSource(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, "UPDATE feed_sources SET last_polled_at = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("touch source %s: %w", id, err)
	}
	return nil
}

// InsertItem persists a classified item. Returns false when the
// canonical URL or fingerprint already exists; the duplicate is an
// expected condition, not an error.
func (s *SQLiteStore) InsertItem(ctx context.Context, item *feed.Item) (bool, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO content_items
			(id, source_id, source_name, category, title, body, url, fingerprint, urgent, importance, published_at, fetched_at, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.SourceID, item.SourceName, item.Category, item.Title, item.Body,
		item.URL, item.Fingerprint, item.Urgent, item.Importance,
		item.PublishedAt, item.FetchedAt, item.Processed)
	if err != nil {
		return false, fmt.Errorf("insert item %s: %w", item.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert item %s: %w", item.URL, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, opts ListOpts) ([]feed.Item, error) {
	q := sq.Select("*").From("content_items")

	if opts.SourceID != "" {
		q = q.Where(sq.Eq{"source_id": opts.SourceID})
	}
	if opts.Category != "" {
		q = q.Where(sq.Eq{"category": opts.Category})
	}
	if !opts.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"published_at": opts.Since})
	}
	if opts.MinImportance > 0 {
		q = q.Where(sq.GtOrEq{"importance": opts.MinImportance})
	}
	if opts.Unprocessed {
		q = q.Where(sq.Eq{"processed": false})
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q = q.OrderBy("importance DESC", "published_at DESC").Limit(uint64(limit))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list items: %w", err)
	}

	var items []feed.Item
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// MarkProcessed performs the one-time processed transition.
func (s *SQLiteStore) MarkProcessed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE content_items SET processed = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) ListSubscriptions(ctx context.Context) ([]subscribe.Subscription, error) {
	var subs []subscribe.Subscription
	if err := s.db.SelectContext(ctx, &subs, "SELECT * FROM user_subscriptions"); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *SQLiteStore) ListCategoryPrefs(ctx context.Context) ([]subscribe.CategoryPref, error) {
	var prefs []subscribe.CategoryPref
	if err := s.db.SelectContext(ctx, &prefs, "SELECT * FROM user_category_prefs"); err != nil {
		return nil, fmt.Errorf("list category prefs: %w", err)
	}
	return prefs, nil
}

func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]subscribe.Profile, error) {
	var profiles []subscribe.Profile
	if err := s.db.SelectContext(ctx, &profiles, "SELECT * FROM user_profiles"); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

func (s *SQLiteStore) UpsertSubscription(ctx context.Context, sub *subscribe.Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_subscriptions (user_id, source_id, active, keywords, min_importance, urgent_only)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, source_id) DO UPDATE SET
			active = excluded.active,
			keywords = excluded.keywords,
			min_importance = excluded.min_importance,
			urgent_only = excluded.urgent_only
	`, sub.UserID, sub.SourceID, sub.Active, sub.Keywords, sub.MinImportance, sub.UrgentOnly)
	if err != nil {
		return fmt.Errorf("upsert subscription %d/%s: %w", sub.UserID, sub.SourceID, err)
	}
	return nil
}

func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *subscribe.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, urgent_enabled, digest_enabled, digest_time, min_importance, max_daily, timezone, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			urgent_enabled = excluded.urgent_enabled,
			digest_enabled = excluded.digest_enabled,
			digest_time = excluded.digest_time,
			min_importance = excluded.min_importance,
			max_daily = excluded.max_daily,
			timezone = excluded.timezone,
			last_active_at = excluded.last_active_at
	`, p.UserID, p.UrgentEnabled, p.DigestEnabled, p.DigestTime, p.MinImportance, p.MaxDaily, p.Timezone, p.LastActiveAt)
	if err != nil {
		return fmt.Errorf("upsert profile %d: %w", p.UserID, err)
	}
	return nil
}

// RecordDelivery inserts a delivery record. Returns false when the
// (user, item, channel) row already exists, making redelivery
// idempotent: a retry neither double-counts the budget nor sends twice.
func (s *SQLiteStore) RecordDelivery(ctx context.Context, userID int64, itemID, channel string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO deliveries (id, user_id, item_id, channel, sent_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), userID, itemID, channel, at)
	if err != nil {
		return false, fmt.Errorf("record delivery %d/%s: %w", userID, itemID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record delivery %d/%s: %w", userID, itemID, err)
	}
	return n > 0, nil
}

// DeleteDelivery rolls back a delivery record after a failed send so
// the attempt does not consume budget.
func (s *SQLiteStore) DeleteDelivery(ctx context.Context, userID int64, itemID, channel string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM deliveries WHERE user_id = ? AND item_id = ? AND channel = ?",
		userID, itemID, channel)
	if err != nil {
		return fmt.Errorf("delete delivery %d/%s: %w", userID, itemID, err)
	}
	return nil
}

// BudgetCounts returns per-user counts of regular/urgent deliveries
// since the given time. Digest deliveries are exempt from the budget.
func (s *SQLiteStore) BudgetCounts(ctx context.Context, since time.Time) (map[int64]int, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT user_id, COUNT(*) AS cnt FROM deliveries
		WHERE channel IN ('regular', 'urgent') AND sent_at >= ?
		GROUP BY user_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("budget counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var userID int64
		var cnt int
		if err := rows.Scan(&userID, &cnt); err != nil {
			return nil, err
		}
		counts[userID] = cnt
	}
	return counts, rows.Err()
}

// Seen implements the dedup backend: a single INSERT OR IGNORE is the
// atomic set-if-absent, so two concurrent polls cannot both observe
// "not seen". Expired entries are cleared first so a repeat
// fingerprint after the retention window counts as new.
func (s *SQLiteStore) Seen(ctx context.Context, fingerprint string) (bool, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM dedup_entries WHERE fingerprint = ? AND expires_at <= ?",
		fingerprint, now)
	if err != nil {
		return false, fmt.Errorf("dedup sweep %s: %w", fingerprint, err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO dedup_entries (fingerprint, expires_at) VALUES (?, ?)",
		fingerprint, now.Add(s.dedupTTL))
	if err != nil {
		return false, fmt.Errorf("dedup mark %s: %w", fingerprint, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dedup mark %s: %w", fingerprint, err)
	}
	return n == 0, nil
}
