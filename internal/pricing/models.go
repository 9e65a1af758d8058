package pricing

import "time"

// Amounts are expressed in minor units (e.g., cents) using int64.

// Pricing is the per-country rate card. One active row per country code.
type Pricing struct {
	ID          string `json:"id" db:"id"`
	CountryCode string `json:"country_code" db:"country_code"`

	Currency string `json:"currency" db:"currency"`

	// NumberMonthlyMinor is the recurring rental fee for a virtual number.
	NumberMonthlyMinor int64 `json:"number_monthly_minor" db:"number_monthly_minor"`

	// CallPerMinuteMinor is the outbound price per started minute.
	CallPerMinuteMinor int64 `json:"call_per_minute_minor" db:"call_per_minute_minor"`

	// SMSMinor is the price per outbound message.
	SMSMinor int64 `json:"sms_minor" db:"sms_minor"`

	// UnlimitedPlanMonthlyMinor is the monthly price of the unlimited
	// call plan (fair-use capped) for this country.
	UnlimitedPlanMonthlyMinor int64 `json:"unlimited_plan_monthly_minor" db:"unlimited_plan_monthly_minor"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BillableMinutes converts a call duration to whole billable minutes,
// rounding up to the next started minute. Zero or negative duration
// bills zero.
func BillableMinutes(durationSeconds int) int {
	if durationSeconds <= 0 {
		return 0
	}
	m := durationSeconds / 60
	if durationSeconds%60 != 0 {
		m++
	}
	return m
}
