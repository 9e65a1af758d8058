package plans

import "time"

// UserPlan is an unlimited-calling plan bound to one user and country.
// "Unlimited" is bounded by a fair-use minute cap per period.
type UserPlan struct {
	ID          string `json:"id" db:"id"`
	UserID      string `json:"user_id" db:"user_id"`
	CountryCode string `json:"country_code" db:"country_code"`

	Status Status `json:"status" db:"status"`

	MinutesLimit int `json:"minutes_limit" db:"minutes_limit"`
	MinutesUsed  int `json:"minutes_used" db:"minutes_used"`

	StartedAt     time.Time `json:"started_at" db:"started_at"`
	NextBillingAt time.Time `json:"next_billing_at" db:"next_billing_at"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type Status string

const (
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
)

// Period is the plan billing cycle.
const Period = 30 * 24 * time.Hour

// MinutesRemaining never reports negative.
func (p UserPlan) MinutesRemaining() int {
	if r := p.MinutesLimit - p.MinutesUsed; r > 0 {
		return r
	}
	return 0
}

// Lapsed reports whether the period has ended relative to now. A lapsed
// plan may still read status=active in storage until someone touches it.
func (p UserPlan) Lapsed(now time.Time) bool {
	return !p.NextBillingAt.After(now)
}
