package classify

// LocaleKeywords is a keyword list tagged with its locale. Lists are
// loaded once at startup and immutable afterwards.
type LocaleKeywords struct {
	Locale   string   `yaml:"locale"`
	Keywords []string `yaml:"keywords"`
}

// Rule is one independent scoring rule: any keyword hit applies the
// weight once. Rules are evaluated independently and summed.
type Rule struct {
	Name     string
	Keywords []string
	Weight   int
}

// DefaultUrgencyKeywords trigger the urgent flag on plain substring
// containment, per locale.
var DefaultUrgencyKeywords = []LocaleKeywords{
	{Locale: "en", Keywords: []string{
		"breaking", "urgent", "hacked", "exploit", "security breach",
		"emergency", "halted", "suspended", "critical vulnerability",
		"stolen funds", "flash crash", "depeg",
	}},
	{Locale: "es", Keywords: []string{
		"urgente", "última hora", "hackeo", "suspendido",
	}},
	{Locale: "ru", Keywords: []string{
		"срочно", "взлом", "экстренно", "приостановлен",
	}},
}

// DefaultAuthoritySources are regulator and government identities.
// Matching is substring containment against the source name.
var DefaultAuthoritySources = []string{
	"sec.gov", "cftc.gov", "treasury.gov", "federalreserve.gov",
	"esma.europa.eu", "fca.org.uk",
}

// DefaultExchangeSources are major-exchange identities.
var DefaultExchangeSources = []string{
	"binance", "coinbase", "kraken", "okx", "bybit", "bitstamp",
}

// DefaultAuthorityPatterns is the urgent pattern subset that, combined
// with a high-authority source, marks an item urgent even without a
// plain urgency keyword.
var DefaultAuthorityPatterns = []string{
	"approves", "approved", "approval", "etf", "listing", "delisting",
	"maintenance", "suspension", "suspends", "halts", "enforcement",
}

// DefaultScoreRules are the additive importance weights. Multiple
// category hits all apply before the final clamp to [1,5].
var DefaultScoreRules = []Rule{
	{Name: "security-alert", Weight: 5, Keywords: []string{
		"hack", "exploit", "vulnerability", "breach", "stolen",
		"phishing", "51% attack", "rug pull", "drained",
	}},
	{Name: "listing", Weight: 4, Keywords: []string{
		"listing", "delisting", "delist", "will list", "new trading pair",
	}},
	{Name: "regulatory", Weight: 4, Keywords: []string{
		"sec", "cftc", "regulation", "regulatory", "lawsuit", "etf",
		"approval", "approves", "ban", "sanction", "compliance",
	}},
	{Name: "partnership", Weight: 2, Keywords: []string{
		"partnership", "partners with", "collaboration", "acquisition",
		"integration",
	}},
	{Name: "technical-update", Weight: 2, Keywords: []string{
		"upgrade", "hard fork", "mainnet", "testnet", "protocol update",
		"release",
	}},
	{Name: "market-analysis", Weight: 1, Keywords: []string{
		"market analysis", "price analysis", "forecast", "outlook",
		"prediction", "technical analysis",
	}},
}
