package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// UsageSummaryRequest requests aggregated usage for one user.

type UsageSummaryRequest struct {
	UserID string    `json:"user_id"`
	Range  TimeRange `json:"range"`
}

type UsageSummary struct {
	UserID string `json:"user_id"`

	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	MissedCalls    int `json:"missed_calls"`
	FailedCalls    int `json:"failed_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	MessagesSent     int `json:"messages_sent"`
	MessagesReceived int `json:"messages_received"`

	CallSpendMinor  int64 `json:"call_spend_minor"`
	SMSSpendMinor   int64 `json:"sms_spend_minor"`
	TotalSpendMinor int64 `json:"total_spend_minor"`
}

// SpendSummaryRequest requests aggregated ledger movement for one user.
// Spend is derived from immutable wallet transactions.

type SpendSummaryRequest struct {
	UserID string    `json:"user_id"`
	Range  TimeRange `json:"range"`
}

type SpendSummary struct {
	UserID   string `json:"user_id"`
	Currency string `json:"currency"`

	TotalDebitMinor  int64 `json:"total_debit_minor"`
	TotalCreditMinor int64 `json:"total_credit_minor"`
	NetDeltaMinor    int64 `json:"net_delta_minor"`

	ByMethodMinor map[string]int64 `json:"by_method_minor"`
}
