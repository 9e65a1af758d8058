package calls

import "time"

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ActiveCall is the transient in-flight state of a call the platform is
// shepherding: created when a call starts, deleted when it ends. Lives
// in Redis with a TTL backstop so a lost webhook cannot leak entries
// forever.
type ActiveCall struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// SID is the provider's call identifier. Empty until the provider
	// reports it (outbound app-initiated calls learn it from the first
	// webhook).
	SID string `json:"sid,omitempty"`

	From      string    `json:"from"`
	To        string    `json:"to"`
	Direction Direction `json:"direction"`

	// Status: pending, initiated, ringing, in-progress, fallback.
	Status string `json:"status"`

	StartedAt time.Time `json:"started_at"`
}

// CallRecord is the permanent record of a finished call.
type CallRecord struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	SID    string `json:"sid" db:"sid"`

	From      string    `json:"from_number" db:"from_number"`
	To        string    `json:"to_number" db:"to_number"`
	Direction Direction `json:"direction" db:"direction"`

	// Status: completed, missed, no-answer, busy, failed, canceled.
	Status string `json:"status" db:"status"`

	DurationSeconds int   `json:"duration_seconds" db:"duration_seconds"`
	CostMinor       int64 `json:"cost_minor" db:"cost_minor"`

	VoicemailURL string `json:"voicemail_url,omitempty" db:"voicemail_url"`

	StartedAt time.Time `json:"started_at" db:"started_at"`
	EndedAt   time.Time `json:"ended_at" db:"ended_at"`
}

// terminalStatuses are the provider statuses that end a call. Anything
// else (queued, initiated, ringing, in-progress) is a progress report.
var terminalStatuses = map[string]bool{
	"completed": true,
	"no-answer": true,
	"busy":      true,
	"failed":    true,
	"canceled":  true,
}

func IsTerminalStatus(status string) bool {
	return terminalStatuses[status]
}

// RecordStatus maps a terminal provider status to the status stored on
// the call record. Unanswered inbound calls read as "missed" to the
// owner of the number; unanswered outbound calls stay "no-answer".
func RecordStatus(providerStatus string, direction Direction) string {
	if providerStatus == "no-answer" || providerStatus == "busy" {
		if direction == DirectionInbound {
			return "missed"
		}
		return "no-answer"
	}
	return providerStatus
}
