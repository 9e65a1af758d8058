package wallet

import "time"

// Balance is the per-user scalar balance, in minor units.
//
// Money invariant: the balance never goes negative from call billing.
// Every balance change must have a corresponding transaction row.
type Balance struct {
	UserID       string    `json:"user_id" db:"user_id"`
	Currency     string    `json:"currency" db:"currency"`
	BalanceMinor int64     `json:"balance_minor" db:"balance_minor"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction is an immutable append-only ledger entry.
//
// Pending entries (topups awaiting admin approval) carry no balance
// effect until approved; approval flips status and credits atomically.
type Transaction struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	Type        TxType `json:"type" db:"type"`
	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`

	// Method categorizes what the money moved for:
	// call, sms, number_rental, number_renewal, unlimited_plan,
	// plan_renewal, usdt, google_play.
	Method string `json:"method" db:"method"`

	Status TxStatus `json:"status" db:"status"`

	// ExternalRef is optional: call id, number id, plan id, chain txid.
	ExternalRef string `json:"external_ref,omitempty" db:"external_ref"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type TxType string

const (
	TxTypeCredit TxType = "credit"
	TxTypeDebit  TxType = "debit"
)

type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCompleted TxStatus = "completed"
	TxStatusRejected  TxStatus = "rejected"
)
