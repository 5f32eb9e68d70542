package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/semaphore"

	"github.com/dkoval/newsherald/internal/metrics"
)

const maxBodyRunes = 2000

// Fetcher polls syndication feeds concurrently. A single source's
// failure never aborts the batch; it is logged and contributes zero
// items. Total batch latency is bounded by the slowest source's
// timeout, not the sum.
type Fetcher struct {
	client  *http.Client
	parser  *gofeed.Parser
	log     *slog.Logger
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewFetcher creates a fetcher with a bounded in-flight count and a
// per-source timeout.
func NewFetcher(log *slog.Logger, maxInFlight int, timeout time.Duration) *Fetcher {
	if maxInFlight <= 0 {
		maxInFlight = 8
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		parser:  gofeed.NewParser(),
		log:     log.With("component", "fetcher"),
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
		timeout: timeout,
	}
}

// Poll fetches every active source and gathers the parsed entries.
// Inactive sources are skipped.
func (f *Fetcher) Poll(ctx context.Context, sources []Source) []RawItem {
	var (
		mu  sync.Mutex
		all []RawItem
		wg  sync.WaitGroup
	)

	for _, src := range sources {
		if !src.Active {
			continue
		}
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			if err := f.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer f.sem.Release(1)

			items, err := f.pollSource(ctx, src)
			if err != nil {
				f.log.Warn("source poll failed", "source", src.Name, "error", err)
				metrics.FeedErrors.Inc()
				return
			}
			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
		}(src)
	}

	wg.Wait()
	return all
}

func (f *Fetcher) pollSource(ctx context.Context, src Source) ([]RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request %s: %w", src.Name, err)
	}
	req.Header.Set("User-Agent", "newsherald/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", src.Name, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		// Malformed feed downgrades to zero items, not a hard error.
		f.log.Warn("feed parse failed", "source", src.Name, "error", err)
		return nil, nil
	}

	now := time.Now().UTC()
	var items []RawItem
	for _, entry := range parsed.Items {
		if entry.Title == "" {
			continue
		}

		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}
		if link == "" {
			continue
		}

		published := now
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		items = append(items, RawItem{
			Title:       entry.Title,
			Body:        truncate(entry.Description, maxBodyRunes),
			URL:         link,
			SourceID:    src.ID,
			SourceName:  src.Name,
			Category:    src.Category,
			PublishedAt: published,
			Fingerprint: Fingerprint(entry.Title, link),
		})
	}

	return items, nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
