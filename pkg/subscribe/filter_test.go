package subscribe

import (
	"testing"

	"github.com/dkoval/newsherald/pkg/feed"
)

func testItem() feed.Item {
	return feed.Item{
		ID:         "item-1",
		SourceID:   "src-1",
		SourceName: "Example Wire",
		Category:   "Regulation",
		Title:      "SEC approves Bitcoin ETF",
		Body:       "Spot ETF trading begins this week",
		Importance: 5,
		Urgent:     true,
	}
}

func TestEligibleUnionOfSourceAndCategory(t *testing.T) {
	t.Parallel()

	subs := []Subscription{
		{UserID: 1, SourceID: "src-1", MinImportance: 1, Active: true},
		{UserID: 2, SourceID: "src-2", MinImportance: 1, Active: true}, // other source
		{UserID: 5, SourceID: "src-1", MinImportance: 1, Active: false},
	}
	prefs := []CategoryPref{
		{UserID: 3, Category: "regulation", Subscribed: true},
		{UserID: 4, Category: "regulation", Subscribed: false},
		{UserID: 1, Category: "Regulation", Subscribed: true}, // also source-subscribed
	}
	ix := NewIndex(subs, prefs, nil, nil)

	got := ix.Eligible(testItem(), ModeRegular)
	want := map[int64]struct{}{1: {}, 3: {}}
	if len(got) != len(want) {
		t.Fatalf("eligible = %v, want %v", got, want)
	}
	for id := range want {
		if _, ok := got[id]; !ok {
			t.Errorf("user %d missing from eligible set", id)
		}
	}
}

func TestEligibleCategoryCaseInsensitive(t *testing.T) {
	t.Parallel()

	prefs := []CategoryPref{{UserID: 7, Category: "REGULATION", Subscribed: true}}
	ix := NewIndex(nil, prefs, nil, nil)

	if _, ok := ix.Eligible(testItem(), ModeRegular)[7]; !ok {
		t.Error("category match should ignore case")
	}
}

func TestRegularModeFilters(t *testing.T) {
	t.Parallel()

	item := testItem()
	item.Importance = 3
	item.Urgent = false

	tests := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{"passes plain", Subscription{UserID: 1, SourceID: "src-1", MinImportance: 1, Active: true}, true},
		{"min importance met", Subscription{UserID: 1, SourceID: "src-1", MinImportance: 3, Active: true}, true},
		{"min importance unmet", Subscription{UserID: 1, SourceID: "src-1", MinImportance: 4, Active: true}, false},
		{"urgent only excluded", Subscription{UserID: 1, SourceID: "src-1", MinImportance: 1, UrgentOnly: true, Active: true}, false},
		{"keyword hit", Subscription{UserID: 1, SourceID: "src-1", MinImportance: 1, Keywords: "etf, solana", Active: true}, true},
		{"keyword hit in body", Subscription{UserID: 1, SourceID: "src-1", MinImportance: 1, Keywords: "trading", Active: true}, true},
		{"keyword miss", Subscription{UserID: 1, SourceID: "src-1", MinImportance: 1, Keywords: "solana, dogecoin", Active: true}, false},
		{"empty keywords match all", Subscription{UserID: 1, SourceID: "src-1", MinImportance: 1, Keywords: "  ", Active: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := NewIndex([]Subscription{tt.sub}, nil, nil, nil)
			_, ok := ix.Eligible(item, ModeRegular)[tt.sub.UserID]
			if ok != tt.want {
				t.Errorf("eligible = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestUrgentModeGate(t *testing.T) {
	t.Parallel()

	subs := []Subscription{
		{UserID: 1, SourceID: "src-1", MinImportance: 1, Active: true},
		{UserID: 2, SourceID: "src-1", MinImportance: 1, Active: true},
	}
	profiles := []Profile{
		{UserID: 1, MinImportance: 1, UrgentEnabled: true},
		{UserID: 2, MinImportance: 1, UrgentEnabled: false},
	}
	ix := NewIndex(subs, nil, profiles, nil)

	item := testItem()
	got := ix.Eligible(item, ModeUrgent)
	if _, ok := got[1]; !ok {
		t.Error("urgent-enabled user should be eligible")
	}
	if _, ok := got[2]; ok {
		t.Error("user without urgent opt-in should be excluded")
	}

	// A non-urgent item never goes out on the urgent path.
	item.Urgent = false
	if got := ix.Eligible(item, ModeUrgent); len(got) != 0 {
		t.Errorf("non-urgent item eligible on urgent path: %v", got)
	}
}

func TestDigestModeGate(t *testing.T) {
	t.Parallel()

	subs := []Subscription{
		// Keyword filter and urgent_only are regular-path concerns;
		// digests ignore both.
		{UserID: 1, SourceID: "src-1", MinImportance: 1, Keywords: "nomatch", UrgentOnly: true, Active: true},
		{UserID: 2, SourceID: "src-1", MinImportance: 1, Active: true},
	}
	profiles := []Profile{
		{UserID: 1, MinImportance: 1, DigestEnabled: true},
		{UserID: 2, MinImportance: 1, DigestEnabled: false},
	}
	ix := NewIndex(subs, nil, profiles, nil)

	item := testItem()
	item.Importance = 3

	got := ix.Eligible(item, ModeDigest)
	if _, ok := got[1]; !ok {
		t.Error("digest-enabled user should be eligible regardless of keyword filter")
	}
	if _, ok := got[2]; ok {
		t.Error("user without digest opt-in should be excluded")
	}

	// Items under the digest floor never qualify.
	item.Importance = DigestFloor - 1
	if got := ix.Eligible(item, ModeDigest); len(got) != 0 {
		t.Errorf("item below digest floor eligible: %v", got)
	}
}

func TestProfileFloor(t *testing.T) {
	t.Parallel()

	subs := []Subscription{{UserID: 1, SourceID: "src-1", MinImportance: 1, Active: true}}
	profiles := []Profile{{UserID: 1, MinImportance: 4, UrgentEnabled: true}}
	ix := NewIndex(subs, nil, profiles, nil)

	item := testItem()
	item.Importance = 3
	item.Urgent = true

	// The global floor applies to both regular and urgent paths.
	if got := ix.Eligible(item, ModeRegular); len(got) != 0 {
		t.Errorf("regular path ignored profile floor: %v", got)
	}
	if got := ix.Eligible(item, ModeUrgent); len(got) != 0 {
		t.Errorf("urgent path ignored profile floor: %v", got)
	}

	item.Importance = 4
	if got := ix.Eligible(item, ModeRegular); len(got) != 1 {
		t.Errorf("item at floor should pass: %v", got)
	}
}

func TestBudgetCut(t *testing.T) {
	t.Parallel()

	subs := []Subscription{
		{UserID: 1, SourceID: "src-1", MinImportance: 1, Active: true},
		{UserID: 2, SourceID: "src-1", MinImportance: 1, Active: true},
	}
	profiles := []Profile{
		{UserID: 1, MinImportance: 1, MaxDaily: 2, UrgentEnabled: true, DigestEnabled: true},
		{UserID: 2, MinImportance: 1, MaxDaily: 0, UrgentEnabled: true}, // unlimited
	}
	counts := map[int64]int{1: 2, 2: 500}
	ix := NewIndex(subs, nil, profiles, func(userID int64) int { return counts[userID] })

	item := testItem()

	got := ix.Eligible(item, ModeRegular)
	if _, ok := got[1]; ok {
		t.Error("user at budget should be cut on the regular path")
	}
	if _, ok := got[2]; !ok {
		t.Error("max_daily 0 means unlimited")
	}

	// Urgent deliveries count against the same budget.
	got = ix.Eligible(item, ModeUrgent)
	if _, ok := got[1]; ok {
		t.Error("user at budget should be cut on the urgent path")
	}

	// Digests are exempt from the budget.
	got = ix.Eligible(item, ModeDigest)
	if _, ok := got[1]; !ok {
		t.Error("digest path must ignore the rolling budget")
	}

	// Under budget the user passes.
	counts[1] = 1
	if _, ok := ix.Eligible(item, ModeRegular)[1]; !ok {
		t.Error("user under budget should pass")
	}
}

func TestProfileDefaults(t *testing.T) {
	t.Parallel()

	ix := NewIndex(nil, nil, nil, nil)
	p := ix.Profile(42)
	if p.UserID != 42 || p.MinImportance != 1 {
		t.Errorf("default profile = %+v", p)
	}
	if p.UrgentEnabled || p.DigestEnabled {
		t.Error("urgent and digest delivery require explicit opt-in")
	}

	// A user with no stored profile still receives regular deliveries.
	subs := []Subscription{{UserID: 42, SourceID: "src-1", MinImportance: 1, Active: true}}
	ix = NewIndex(subs, nil, nil, nil)
	if _, ok := ix.Eligible(testItem(), ModeRegular)[42]; !ok {
		t.Error("profileless user should get regular deliveries")
	}
}
