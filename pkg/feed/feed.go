package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Source is a configured syndication feed endpoint.
type Source struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	URL          string    `json:"url" db:"url"`
	Category     string    `json:"category" db:"category"`
	Priority     int       `json:"priority" db:"priority"`
	PollInterval int       `json:"poll_interval_secs" db:"poll_interval_secs"`
	Active       bool      `json:"active" db:"active"`
	LastPolledAt time.Time `json:"last_polled_at" db:"last_polled_at"`
}

// RawItem is one parsed feed entry before classification.
type RawItem struct {
	Title       string
	Body        string
	URL         string
	SourceID    string
	SourceName  string
	Category    string
	PublishedAt time.Time
	Fingerprint string
}

// Item is a persisted content item. Immutable after classification
// except for the one-time processed transition.
type Item struct {
	ID          string    `json:"id" db:"id"`
	SourceID    string    `json:"source_id" db:"source_id"`
	SourceName  string    `json:"source_name" db:"source_name"`
	Category    string    `json:"category" db:"category"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body" db:"body"`
	URL         string    `json:"url" db:"url"`
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	Urgent      bool      `json:"urgent" db:"urgent"`
	Importance  int       `json:"importance" db:"importance"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	FetchedAt   time.Time `json:"fetched_at" db:"fetched_at"`
	Processed   bool      `json:"processed" db:"processed"`
}

// Fingerprint derives the dedup key from title and canonical URL.
// Two entries with the same fingerprint are the same logical event
// regardless of source metadata differences.
func Fingerprint(title, url string) string {
	key := strings.ToLower(strings.TrimSpace(title)) + "\n" + strings.TrimSpace(url)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
