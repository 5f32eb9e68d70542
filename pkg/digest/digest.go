// Package digest aggregates the trailing window's items into one
// batched message per user, fired per configured time-of-day slot.
package digest

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dkoval/newsherald/pkg/feed"
	"github.com/dkoval/newsherald/pkg/subscribe"
)

const (
	// Window is the rolling aggregation window, in UTC.
	Window = 24 * time.Hour
	// TopN bounds how many candidate items enter any digest.
	TopN = 10
)

var timeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Summarizer is an optional capability that condenses the digest's
// headlines into a lead line. Absence or failure only drops the line.
type Summarizer interface {
	Summarize(ctx context.Context, headlines []string) (string, error)
}

// ParseTime validates and splits an HH:MM digest time.
func ParseTime(s string) (hour, minute int, err error) {
	m := timeRe.FindStringSubmatch(s)
	if len(m) != 3 {
		return 0, 0, fmt.Errorf("invalid digest time %q (expected HH:MM)", s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// SlotUTC maps a user's local digest time-of-day to the UTC HH:MM slot
// it falls in on the given day.
func SlotUTC(digestTime, timezone string, now time.Time) (string, error) {
	hour, minute, err := ParseTime(digestTime)
	if err != nil {
		return "", err
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	local := now.In(loc)
	at := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	return at.UTC().Format("15:04"), nil
}

// UserItems selects, per user, the subset of the truncated candidate
// list the user is eligible for in digest mode, preserving candidate
// order (importance desc, recency desc).
func UserItems(ix *subscribe.Index, candidates []feed.Item, userID int64) []feed.Item {
	var out []feed.Item
	for _, item := range candidates {
		if _, ok := ix.Eligible(item, subscribe.ModeDigest)[userID]; ok {
			out = append(out, item)
		}
	}
	return out
}

// Format renders one digest message. summary may be empty.
func Format(items []feed.Item, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 *Daily digest* — %d stories\n", len(items))
	if summary != "" {
		b.WriteString(summary)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for i, item := range items {
		marker := ""
		if item.Urgent {
			marker = "🚨 "
		}
		fmt.Fprintf(&b, "%d. %s%s (%d/5)\n%s\n", i+1, marker, item.Title, item.Importance, item.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}
