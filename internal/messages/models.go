package messages

import "time"

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is one SMS, inbound or outbound, keyed by the provider's
// message SID for idempotent webhook ingestion.
type Message struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	SID    string `json:"sid" db:"sid"`

	From      string    `json:"from_number" db:"from_number"`
	To        string    `json:"to_number" db:"to_number"`
	Body      string    `json:"body" db:"body"`
	Direction Direction `json:"direction" db:"direction"`

	CostMinor int64 `json:"cost_minor" db:"cost_minor"`
	Read      bool  `json:"read" db:"read"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
