package subscribe

import (
	"time"
)

// Mode selects the delivery path an eligibility check runs for.
type Mode string

const (
	ModeRegular Mode = "regular"
	ModeUrgent  Mode = "urgent"
	ModeDigest  Mode = "digest"
)

// DigestFloor is the minimum importance an item needs to enter any
// digest, independent of per-user floors.
const DigestFloor = 3

// Subscription is one (user, source) filter row. Rows are
// soft-deactivated, never deleted, to preserve history.
type Subscription struct {
	UserID        int64  `json:"user_id" db:"user_id"`
	SourceID      string `json:"source_id" db:"source_id"`
	Active        bool   `json:"active" db:"active"`
	Keywords      string `json:"keywords" db:"keywords"`
	MinImportance int    `json:"min_importance" db:"min_importance"`
	UrgentOnly    bool   `json:"urgent_only" db:"urgent_only"`
}

// CategoryPref subscribes a user to a whole category, independent of
// per-source subscriptions.
type CategoryPref struct {
	UserID     int64  `json:"user_id" db:"user_id"`
	Category   string `json:"category" db:"category"`
	Subscribed bool   `json:"subscribed" db:"subscribed"`
}

// Profile holds a user's notification settings. Read-only to the
// pipeline.
type Profile struct {
	UserID        int64     `json:"user_id" db:"user_id"`
	UrgentEnabled bool      `json:"urgent_enabled" db:"urgent_enabled"`
	DigestEnabled bool      `json:"digest_enabled" db:"digest_enabled"`
	DigestTime    string    `json:"digest_time" db:"digest_time"`
	MinImportance int       `json:"min_importance" db:"min_importance"`
	MaxDaily      int       `json:"max_daily" db:"max_daily"`
	Timezone      string    `json:"timezone" db:"timezone"`
	LastActiveAt  time.Time `json:"last_active_at" db:"last_active_at"`
}

// BudgetFunc reports how many regular/urgent deliveries a user has
// received in the trailing 24 hours.
type BudgetFunc func(userID int64) int
