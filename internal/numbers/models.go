package numbers

import "time"

// VirtualNumber is a provider-issued phone number owned by the platform
// and assigned to at most one user at a time.
//
// PhoneNumber is stored normalized (see internal/phone); lookups must
// normalize their input before querying.
type VirtualNumber struct {
	ID          string `json:"id" db:"id"`
	CountryCode string `json:"country_code" db:"country_code"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`

	Status Status `json:"status" db:"status"`

	UserID        string     `json:"user_id,omitempty" db:"user_id"`
	AssignedAt    *time.Time `json:"assigned_at,omitempty" db:"assigned_at"`
	NextBillingAt *time.Time `json:"next_billing_at,omitempty" db:"next_billing_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Status string

const (
	StatusAvailable Status = "available"
	StatusAssigned  Status = "assigned"

	// StatusSuspended is set by the renewal sweep when the owner's
	// wallet cannot cover the monthly rental.
	StatusSuspended Status = "suspended"
)

// RentalPeriod is the assignment/renewal billing period.
const RentalPeriod = 30 * 24 * time.Hour
