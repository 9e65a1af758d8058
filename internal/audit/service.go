package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to end users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ActorUserID == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogTopUpDecision records an admin approving or rejecting a topup.
func (s *Service) LogTopUpDecision(ctx context.Context, actorUserID, ip, txnID, targetUserID, decision string) error {
	return s.Append(ctx, Event{
		Type:          EventTypeTopUpDecision,
		ActorUserID:   actorUserID,
		ActorRole:     "admin",
		IPAddress:     ip,
		TransactionID: txnID,
		TargetUserID:  targetUserID,
		Message:       "topup " + decision,
	})
}

// LogPricingChange records a rate card upsert.
func (s *Service) LogPricingChange(ctx context.Context, actorUserID, ip, countryCode, metadata string) error {
	return s.Append(ctx, Event{
		Type:        EventTypePricingChange,
		ActorUserID: actorUserID,
		ActorRole:   "admin",
		IPAddress:   ip,
		Message:     "pricing upsert " + countryCode,
		Metadata:    metadata,
	})
}

// LogNumberPool records number pool changes (add, delete, release).
func (s *Service) LogNumberPool(ctx context.Context, actorUserID, ip, numberID, action string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeNumberPool,
		ActorUserID: actorUserID,
		ActorRole:   "admin",
		IPAddress:   ip,
		NumberID:    numberID,
		Message:     "number " + action,
	})
}
