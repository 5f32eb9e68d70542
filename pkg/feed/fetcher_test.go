package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Wire</title>
  <item>
    <title>SEC approves Bitcoin ETF</title>
    <link>https://example.com/etf</link>
    <description>Spot ETF trading begins this week</description>
    <pubDate>Mon, 15 Jan 2024 09:30:00 GMT</pubDate>
  </item>
  <item>
    <title>Exchange schedules maintenance</title>
    <link>https://example.com/maintenance</link>
    <description>Brief downtime expected</description>
  </item>
  <item>
    <title></title>
    <link>https://example.com/untitled</link>
  </item>
</channel>
</rss>`

func rssServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPollParsesEntries(t *testing.T) {
	t.Parallel()
	srv := rssServer(t, sampleRSS, http.StatusOK)

	f := NewFetcher(slog.New(slog.NewTextHandler(io.Discard, nil)), 4, 5*time.Second)
	items := f.Poll(context.Background(), []Source{
		{ID: "src-1", Name: "Example Wire", URL: srv.URL, Category: "regulation", Active: true},
	})

	// The untitled entry is dropped.
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	byTitle := make(map[string]RawItem, len(items))
	for _, it := range items {
		byTitle[it.Title] = it
	}

	etf, ok := byTitle["SEC approves Bitcoin ETF"]
	if !ok {
		t.Fatal("ETF entry missing")
	}
	if etf.URL != "https://example.com/etf" {
		t.Errorf("URL = %q", etf.URL)
	}
	if etf.SourceID != "src-1" || etf.Category != "regulation" {
		t.Errorf("source metadata not carried: %+v", etf)
	}
	wantPub := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	if !etf.PublishedAt.Equal(wantPub) {
		t.Errorf("PublishedAt = %v, want %v", etf.PublishedAt, wantPub)
	}
	if etf.Fingerprint != Fingerprint(etf.Title, etf.URL) {
		t.Error("fingerprint not derived from title and URL")
	}

	// Entries without a pubDate default to fetch time.
	maint := byTitle["Exchange schedules maintenance"]
	if time.Since(maint.PublishedAt) > time.Minute {
		t.Errorf("missing pubDate should default to now, got %v", maint.PublishedAt)
	}
}

func TestPollIsolatesFailingSource(t *testing.T) {
	t.Parallel()
	good := rssServer(t, sampleRSS, http.StatusOK)
	bad := rssServer(t, "oops", http.StatusInternalServerError)
	malformed := rssServer(t, "this is not xml", http.StatusOK)

	f := NewFetcher(slog.New(slog.NewTextHandler(io.Discard, nil)), 4, 5*time.Second)
	items := f.Poll(context.Background(), []Source{
		{ID: "a", Name: "good", URL: good.URL, Active: true},
		{ID: "b", Name: "bad", URL: bad.URL, Active: true},
		{ID: "c", Name: "malformed", URL: malformed.URL, Active: true},
	})

	// The good source's entries survive its neighbors' failures.
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 from the healthy source", len(items))
	}
	for _, it := range items {
		if it.SourceID != "a" {
			t.Errorf("unexpected item from source %s", it.SourceID)
		}
	}
}

func TestPollSkipsInactiveSources(t *testing.T) {
	t.Parallel()
	srv := rssServer(t, sampleRSS, http.StatusOK)

	f := NewFetcher(slog.New(slog.NewTextHandler(io.Discard, nil)), 4, 5*time.Second)
	items := f.Poll(context.Background(), []Source{
		{ID: "a", Name: "paused", URL: srv.URL, Active: false},
	})
	if len(items) != 0 {
		t.Errorf("inactive source polled: %d items", len(items))
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := Fingerprint("SEC approves Bitcoin ETF", "https://example.com/etf")
	b := Fingerprint("  sec approves bitcoin etf  ", "https://example.com/etf")
	if a != b {
		t.Error("fingerprint should ignore title case and surrounding whitespace")
	}

	if a == Fingerprint("SEC approves Bitcoin ETF", "https://example.com/other") {
		t.Error("different URLs must not collide")
	}
	if a == Fingerprint("Different title", "https://example.com/etf") {
		t.Error("different titles must not collide")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := ""
	for i := 0; i < maxBodyRunes+10; i++ {
		long += "ж"
	}
	got := truncate(long, maxBodyRunes)
	if n := len([]rune(got)); n != maxBodyRunes+3 {
		t.Errorf("truncated length = %d runes", n)
	}
	if truncate("short", maxBodyRunes) != "short" {
		t.Error("short strings pass through unchanged")
	}
}
