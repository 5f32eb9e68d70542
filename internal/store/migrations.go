package store

const schema = `
CREATE TABLE IF NOT EXISTS feed_sources (
    id                 TEXT PRIMARY KEY,
    name               TEXT NOT NULL,
    url                TEXT NOT NULL,
    category           TEXT NOT NULL DEFAULT '',
    priority           INTEGER NOT NULL DEFAULT 0,
    poll_interval_secs INTEGER NOT NULL DEFAULT 300,
    active             BOOLEAN NOT NULL DEFAULT 1,
    last_polled_at     DATETIME NOT NULL DEFAULT '0001-01-01 00:00:00+00:00'
);

CREATE INDEX IF NOT EXISTS idx_sources_active ON feed_sources(active);

CREATE TABLE IF NOT EXISTS content_items (
    id           TEXT PRIMARY KEY,
    source_id    TEXT NOT NULL,
    source_name  TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL DEFAULT '',
    title        TEXT NOT NULL,
    body         TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL UNIQUE,
    fingerprint  TEXT NOT NULL UNIQUE,
    urgent       BOOLEAN NOT NULL DEFAULT 0,
    importance   INTEGER NOT NULL DEFAULT 1 CHECK (importance BETWEEN 1 AND 5),
    published_at DATETIME NOT NULL,
    fetched_at   DATETIME NOT NULL,
    processed    BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_items_published ON content_items(published_at);
CREATE INDEX IF NOT EXISTS idx_items_importance ON content_items(importance);
CREATE INDEX IF NOT EXISTS idx_items_source ON content_items(source_id);

CREATE TABLE IF NOT EXISTS dedup_entries (
    fingerprint TEXT PRIMARY KEY,
    expires_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_subscriptions (
    user_id        INTEGER NOT NULL,
    source_id      TEXT NOT NULL,
    active         BOOLEAN NOT NULL DEFAULT 1,
    keywords       TEXT NOT NULL DEFAULT '',
    min_importance INTEGER NOT NULL DEFAULT 1,
    urgent_only    BOOLEAN NOT NULL DEFAULT 0,
    UNIQUE(user_id, source_id)
);

CREATE TABLE IF NOT EXISTS user_category_prefs (
    user_id    INTEGER NOT NULL,
    category   TEXT NOT NULL,
    subscribed BOOLEAN NOT NULL DEFAULT 1,
    UNIQUE(user_id, category)
);

CREATE TABLE IF NOT EXISTS user_profiles (
    user_id        INTEGER PRIMARY KEY,
    urgent_enabled BOOLEAN NOT NULL DEFAULT 1,
    digest_enabled BOOLEAN NOT NULL DEFAULT 0,
    digest_time    TEXT NOT NULL DEFAULT '08:00',
    min_importance INTEGER NOT NULL DEFAULT 1,
    max_daily      INTEGER NOT NULL DEFAULT 10,
    timezone       TEXT NOT NULL DEFAULT 'UTC',
    last_active_at DATETIME NOT NULL DEFAULT '0001-01-01 00:00:00+00:00'
);

CREATE TABLE IF NOT EXISTS deliveries (
    id      TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL,
    item_id TEXT NOT NULL,
    channel TEXT NOT NULL,
    sent_at DATETIME NOT NULL,
    UNIQUE(user_id, item_id, channel)
);

CREATE INDEX IF NOT EXISTS idx_deliveries_user_sent ON deliveries(user_id, sent_at);
`
