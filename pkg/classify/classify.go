// Package classify derives the urgency flag and the 1-5 importance
// score for content items. Both functions are pure: no I/O, fully
// deterministic over their inputs.
package classify

import "strings"

// MinScore and MaxScore bound the importance score.
const (
	MinScore = 1
	MaxScore = 5
)

// Config overrides the default rule data. Zero-value fields fall back
// to the package defaults.
type Config struct {
	UrgencyKeywords   []LocaleKeywords
	AuthoritySources  []string
	ExchangeSources   []string
	AuthorityPatterns []string
	ScoreRules        []Rule
}

// Classifier evaluates urgency and importance against immutable,
// lowercased rule data.
type Classifier struct {
	urgency           []string
	authoritySources  []string
	exchangeSources   []string
	authorityPatterns []string
	rules             []Rule
}

// New builds a classifier, normalizing all keyword data to lowercase
// so matching is case-insensitive substring containment throughout.
func New(cfg Config) *Classifier {
	urgencyLists := cfg.UrgencyKeywords
	if len(urgencyLists) == 0 {
		urgencyLists = DefaultUrgencyKeywords
	}
	var urgency []string
	for _, list := range urgencyLists {
		for _, kw := range list.Keywords {
			urgency = append(urgency, strings.ToLower(kw))
		}
	}

	return &Classifier{
		urgency:           urgency,
		authoritySources:  lowerAll(orDefault(cfg.AuthoritySources, DefaultAuthoritySources)),
		exchangeSources:   lowerAll(orDefault(cfg.ExchangeSources, DefaultExchangeSources)),
		authorityPatterns: lowerAll(orDefault(cfg.AuthorityPatterns, DefaultAuthorityPatterns)),
		rules:             lowerRules(orDefaultRules(cfg.ScoreRules)),
	}
}

// Urgent reports whether the item demands immediate push delivery.
// True when the text contains any urgency keyword, or when the source
// is a known authority and the text matches the urgent pattern subset.
// Urgency is independent of the importance score.
func (c *Classifier) Urgent(title, body, sourceName string) bool {
	text := normalize(title, body)

	for _, kw := range c.urgency {
		if strings.Contains(text, kw) {
			return true
		}
	}

	if c.matchesSource(sourceName, c.authoritySources) {
		for _, p := range c.authorityPatterns {
			if strings.Contains(text, p) {
				return true
			}
		}
	}

	return false
}

// Importance scores an item in [1,5]. Weights are additive and
// order-independent: every matching rule applies before the single
// upper-bound clamp. The base of 1 with non-negative weights means no
// lower clamp is needed.
func (c *Classifier) Importance(title, body, sourceName string) int {
	text := normalize(title, body)
	score := MinScore

	if c.matchesSource(sourceName, c.exchangeSources) {
		score += 3
	}
	if c.matchesSource(sourceName, c.authoritySources) {
		score += 3
	}

	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				score += rule.Weight
				break
			}
		}
	}

	if score > MaxScore {
		score = MaxScore
	}
	return score
}

func (c *Classifier) matchesSource(sourceName string, set []string) bool {
	name := strings.ToLower(sourceName)
	for _, s := range set {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func normalize(title, body string) string {
	return strings.ToLower(title + " " + body)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func lowerRules(in []Rule) []Rule {
	out := make([]Rule, len(in))
	for i, r := range in {
		out[i] = Rule{Name: r.Name, Weight: r.Weight, Keywords: lowerAll(r.Keywords)}
	}
	return out
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

func orDefaultRules(v []Rule) []Rule {
	if len(v) == 0 {
		return DefaultScoreRules
	}
	return v
}
