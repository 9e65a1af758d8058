// Package routing attributes provider call events to an owning user
// when the normal correlation path (an active-call row keyed by the
// provider call SID) is unavailable.
package routing

import (
	"context"

	"callbridge/internal/numbers"
	"callbridge/internal/phone"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Attribution is the result of phone-number-based ownership inference.
type Attribution struct {
	UserID    string
	Direction Direction
}

// NumberLookup is the slice of the numbers repository the resolver needs.
type NumberLookup interface {
	FindAssignedByPhone(ctx context.Context, phoneNumber string) (numbers.VirtualNumber, bool, error)
}

// Resolver infers direction and owner from an event's two phone numbers.
//
// The heuristic: if "to" matches an assigned virtual number the call is
// inbound to that number's owner; otherwise if "from" matches, it is
// outbound from the owner. Neither matching means the event cannot be
// attributed to any user and must be treated as inert by callers.
//
// This is deliberately the only place the heuristic lives; it is
// best-effort and can misattribute if provisioning data is inconsistent
// (two users with overlapping numbers should be impossible, but the
// storage layer, not this code, enforces that).
type Resolver struct {
	numbers NumberLookup
}

func NewResolver(lookup NumberLookup) *Resolver {
	return &Resolver{numbers: lookup}
}

func (r *Resolver) Resolve(ctx context.Context, from, to string) (Attribution, bool, error) {
	from = phone.Normalize(from)
	to = phone.Normalize(to)

	if to != "" {
		if n, ok, err := r.numbers.FindAssignedByPhone(ctx, to); err != nil {
			return Attribution{}, false, err
		} else if ok {
			return Attribution{UserID: n.UserID, Direction: DirectionInbound}, true, nil
		}
	}
	if from != "" {
		if n, ok, err := r.numbers.FindAssignedByPhone(ctx, from); err != nil {
			return Attribution{}, false, err
		} else if ok {
			return Attribution{UserID: n.UserID, Direction: DirectionOutbound}, true, nil
		}
	}
	return Attribution{}, false, nil
}
