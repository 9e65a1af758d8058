package voicemail

import "time"

// Voicemail is one recorded message, keyed by the provider's recording
// URL so a re-delivered recording callback cannot duplicate it.
type Voicemail struct {
	ID      string `json:"id" db:"id"`
	UserID  string `json:"user_id" db:"user_id"`
	CallSID string `json:"call_sid" db:"call_sid"`

	From         string `json:"from_number" db:"from_number"`
	RecordingURL string `json:"recording_url" db:"recording_url"`

	DurationSeconds int  `json:"duration_seconds" db:"duration_seconds"`
	Read            bool `json:"read" db:"read"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
