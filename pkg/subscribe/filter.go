package subscribe

import (
	"strings"

	"github.com/dkoval/newsherald/pkg/feed"
)

// Index is an immutable snapshot of subscription state plus an
// injected budget lookup. Live fanout and the digest scheduler both
// answer eligibility through the same predicate so the two paths
// cannot diverge.
type Index struct {
	subsBySource map[string][]Subscription
	usersByCat   map[string][]int64
	profiles     map[int64]Profile
	budget       BudgetFunc
}

// NewIndex builds an index. Inactive subscriptions and unsubscribed
// category preferences are excluded up front.
func NewIndex(subs []Subscription, prefs []CategoryPref, profiles []Profile, budget BudgetFunc) *Index {
	ix := &Index{
		subsBySource: make(map[string][]Subscription),
		usersByCat:   make(map[string][]int64),
		profiles:     make(map[int64]Profile, len(profiles)),
		budget:       budget,
	}
	for _, s := range subs {
		if !s.Active {
			continue
		}
		ix.subsBySource[s.SourceID] = append(ix.subsBySource[s.SourceID], s)
	}
	for _, p := range prefs {
		if !p.Subscribed {
			continue
		}
		cat := strings.ToLower(p.Category)
		ix.usersByCat[cat] = append(ix.usersByCat[cat], p.UserID)
	}
	for _, p := range profiles {
		ix.profiles[p.UserID] = p
	}
	if ix.budget == nil {
		ix.budget = func(int64) int { return 0 }
	}
	return ix
}

// Profile returns the stored profile for a user, or defaults (regular
// delivery only, no floor, unlimited budget) when none exists.
func (ix *Index) Profile(userID int64) Profile {
	if p, ok := ix.profiles[userID]; ok {
		return p
	}
	return Profile{UserID: userID, MinImportance: 1}
}

// Profiles returns every known profile.
func (ix *Index) Profiles() []Profile {
	out := make([]Profile, 0, len(ix.profiles))
	for _, p := range ix.profiles {
		out = append(out, p)
	}
	return out
}

// Eligible computes the set of user ids that should receive the item
// under the given delivery mode. Candidates are the union of
// source-level subscribers and category-level subscribers; duplicates
// across rows collapse to one entry.
func (ix *Index) Eligible(item feed.Item, mode Mode) map[int64]struct{} {
	eligible := make(map[int64]struct{})

	for _, sub := range ix.subsBySource[item.SourceID] {
		if ix.passes(item, mode, &sub) {
			eligible[sub.UserID] = struct{}{}
		}
	}

	for _, userID := range ix.usersByCat[strings.ToLower(item.Category)] {
		if _, ok := eligible[userID]; ok {
			continue
		}
		// Category-level candidates carry no per-subscription row, so
		// only the mode gate and profile-level checks apply.
		stub := Subscription{UserID: userID, MinImportance: 1}
		if ix.passes(item, mode, &stub) {
			eligible[userID] = struct{}{}
		}
	}

	return eligible
}

func (ix *Index) passes(item feed.Item, mode Mode, sub *Subscription) bool {
	profile := ix.Profile(sub.UserID)

	switch mode {
	case ModeUrgent:
		if !item.Urgent || !profile.UrgentEnabled {
			return false
		}
	case ModeDigest:
		// Digests honor the importance floors only; per-subscription
		// keyword filters do not apply here.
		if !profile.DigestEnabled || item.Importance < DigestFloor {
			return false
		}
		return true
	case ModeRegular:
		if sub.UrgentOnly {
			return false
		}
		if item.Importance < sub.MinImportance {
			return false
		}
		if !matchesKeywords(item, sub.Keywords) {
			return false
		}
	default:
		return false
	}

	// Global per-user floor applies to regular and urgent modes.
	if item.Importance < profile.MinImportance {
		return false
	}

	// Rolling 24h budget applies to regular and urgent modes; digests
	// are exempt. MaxDaily <= 0 means unlimited.
	if profile.MaxDaily > 0 && ix.budget(sub.UserID) >= profile.MaxDaily {
		return false
	}

	return true
}

// matchesKeywords applies a subscription's optional comma-separated
// OR filter against title+body, case-insensitive. An empty filter
// matches everything.
func matchesKeywords(item feed.Item, keywords string) bool {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return true
	}
	text := strings.ToLower(item.Title + " " + item.Body)
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
