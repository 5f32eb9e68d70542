package classify

import "testing"

func TestUrgentScenarios(t *testing.T) {
	t.Parallel()
	c := New(Config{})

	tests := []struct {
		name   string
		title  string
		body   string
		source string
		want   bool
	}{
		{"regulator approval", "SEC approves Bitcoin ETF", "", "sec.gov", true},
		{"daily wrap", "Daily market wrap", "prices moved sideways", "blog.example.com", false},
		{"plain urgency keyword", "BREAKING: exchange halted withdrawals", "", "blog.example.com", true},
		{"urgency keyword in body", "Weekly notes", "trading suspended after incident", "blog.example.com", true},
		{"authority pattern without authority source", "New listing announced", "", "blog.example.com", false},
		{"authority source without pattern", "Commissioner speech transcript", "", "sec.gov", false},
		{"case insensitive", "ExChAnGe HaCkEd", "", "blog.example.com", true},
		{"spanish locale", "Última hora: fallo del sistema", "", "blog.example.com", true},
		{"russian locale", "Срочно: биржа остановила торги", "", "blog.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Urgent(tt.title, tt.body, tt.source); got != tt.want {
				t.Errorf("Urgent(%q, %q, %q) = %v, want %v", tt.title, tt.body, tt.source, got, tt.want)
			}
		})
	}
}

func TestImportanceScenarios(t *testing.T) {
	t.Parallel()
	c := New(Config{})

	tests := []struct {
		name   string
		title  string
		body   string
		source string
		want   int
	}{
		// authority +3, regulatory +4, clamped to 5
		{"regulator approval", "SEC approves Bitcoin ETF", "", "sec.gov", 5},
		{"daily wrap", "Daily market wrap", "", "blog.example.com", 1},
		{"market analysis only", "Weekly price analysis", "", "blog.example.com", 2},
		{"partnership only", "Project announces partnership with payment firm", "", "blog.example.com", 3},
		{"technical update only", "Mainnet upgrade scheduled", "", "blog.example.com", 3},
		{"exchange tier baseline", "Scheduled blog post", "", "binance", 4},
		{"security alert", "Protocol exploit drains funds", "", "blog.example.com", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Importance(tt.title, tt.body, tt.source); got != tt.want {
				t.Errorf("Importance(%q, %q, %q) = %d, want %d", tt.title, tt.body, tt.source, got, tt.want)
			}
		})
	}
}

func TestImportanceBounds(t *testing.T) {
	t.Parallel()
	c := New(Config{})

	// Stack every rule category plus both source tiers; the sum far
	// exceeds the cap but the result must stay in [1,5].
	title := "hack exploit listing etf approval partnership mainnet upgrade market analysis"
	inputs := []struct {
		title, body, source string
	}{
		{title, title, "binance sec.gov"},
		{"", "", ""},
		{"plain title", "plain body", "unknown"},
	}

	for _, in := range inputs {
		got := c.Importance(in.title, in.body, in.source)
		if got < MinScore || got > MaxScore {
			t.Errorf("Importance(%q) = %d, outside [%d,%d]", in.title, got, MinScore, MaxScore)
		}
	}
}

// Urgency and importance are independent signals: an item can be
// urgent at minimum importance, or maximally important without
// urgency.
func TestUrgencyImportanceIndependence(t *testing.T) {
	t.Parallel()
	c := New(Config{})

	// "breaking" is an urgency keyword but not in any score rule.
	title := "breaking situation developing"
	if !c.Urgent(title, "", "blog.example.com") {
		t.Error("expected urgent")
	}
	if got := c.Importance(title, "", "blog.example.com"); got != 1 {
		t.Errorf("Importance = %d, want 1", got)
	}

	// security keywords max the score without any urgency trigger is
	// impossible by rule design ("hack" triggers urgency), so use the
	// regulatory path with a non-authority source instead.
	title = "etf lawsuit regulation compliance listing"
	if c.Urgent(title, "", "blog.example.com") {
		t.Error("expected not urgent")
	}
	if got := c.Importance(title, "", "blog.example.com"); got != 5 {
		t.Errorf("Importance = %d, want 5", got)
	}
}

func TestRuleSumOrderIndependence(t *testing.T) {
	t.Parallel()
	c := New(Config{})

	a := c.Importance("listing partnership", "", "blog.example.com")
	b := c.Importance("partnership listing", "", "blog.example.com")
	if a != b {
		t.Errorf("score depends on keyword order: %d vs %d", a, b)
	}
	// listing +4 and partnership +2 both apply before the clamp.
	if a != 5 {
		t.Errorf("Importance = %d, want 5 (1+4+2 clamped)", a)
	}
}

func TestConfigOverrides(t *testing.T) {
	t.Parallel()
	c := New(Config{
		UrgencyKeywords: []LocaleKeywords{{Locale: "en", Keywords: []string{"meltdown"}}},
	})

	if !c.Urgent("total meltdown", "", "blog.example.com") {
		t.Error("custom keyword should trigger urgency")
	}
	if c.Urgent("breaking news", "", "blog.example.com") {
		t.Error("default keywords should be replaced by overrides")
	}
}
