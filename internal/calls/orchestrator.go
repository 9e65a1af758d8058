package calls

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"callbridge/internal/numbers"
	"callbridge/internal/routing"
	"callbridge/pkg/logger"
)

var (
	ErrNotYourNumber = errors.New("number not assigned to user")
	ErrNotFound      = errors.New("call not found")
)

// ActiveStore tracks in-flight calls. Implemented by Tracker (Redis)
// and MemoryTracker (tests).
type ActiveStore interface {
	Create(ctx context.Context, c ActiveCall) error
	FindByID(ctx context.Context, id string) (ActiveCall, bool, error)
	FindBySID(ctx context.Context, sid string) (ActiveCall, bool, error)
	AttachSID(ctx context.Context, id, sid, status string) error
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, c ActiveCall) error
	ListByUser(ctx context.Context, userID string) ([]ActiveCall, error)
}

// Attributor decides which user a call belongs to from its endpoints.
type Attributor interface {
	Resolve(ctx context.Context, from, to string) (routing.Attribution, bool, error)
}

// Biller settles the cost of a finished call.
type Biller interface {
	SettleCall(ctx context.Context, userID, fromNumber string, durationSeconds int, direction string, callRef string) (int64, error)
}

// Notifier pushes an event to a user's live connections. Fire and
// forget; a user with no connection just misses the push.
type Notifier interface {
	Notify(userID, event string, payload any)
}

// Completer asks the provider to hang up a live call.
type Completer interface {
	CompleteCall(ctx context.Context, sid string) error
}

// NumberOwnership answers whether a platform number is assigned.
type NumberOwnership interface {
	FindAssignedByPhone(ctx context.Context, phoneNumber string) (numbers.VirtualNumber, bool, error)
}

// StatusEvent is a provider call-status webhook, already parsed.
type StatusEvent struct {
	SID             string
	From            string
	To              string
	Status          string
	DurationSeconds int
}

// Orchestrator drives the call lifecycle: start tracking on initiation
// or inbound ring, settle and record on terminal status, clean up the
// tracker, notify the user.
type Orchestrator struct {
	tracker  ActiveStore
	records  RecordStore
	resolver Attributor
	biller   Biller
	numbers  NumberOwnership
	notifier Notifier
	provider Completer
	clock    func() time.Time
}

func NewOrchestrator(tracker ActiveStore, records RecordStore, resolver Attributor, biller Biller, nums NumberOwnership, notifier Notifier, provider Completer) *Orchestrator {
	return &Orchestrator{
		tracker:  tracker,
		records:  records,
		resolver: resolver,
		biller:   biller,
		numbers:  nums,
		notifier: notifier,
		provider: provider,
		clock:    time.Now,
	}
}

// Initiate registers an app-initiated outbound call before the provider
// leg exists. The SID attaches when the first webhook arrives.
func (o *Orchestrator) Initiate(ctx context.Context, userID, from, to string) (ActiveCall, error) {
	n, ok, err := o.numbers.FindAssignedByPhone(ctx, from)
	if err != nil {
		return ActiveCall{}, err
	}
	if !ok || n.UserID != userID {
		return ActiveCall{}, ErrNotYourNumber
	}

	c := ActiveCall{
		ID:        uuid.NewString(),
		UserID:    userID,
		From:      from,
		To:        to,
		Direction: DirectionOutbound,
		Status:    "pending",
		StartedAt: o.clock().UTC(),
	}
	if err := o.tracker.Create(ctx, c); err != nil {
		return ActiveCall{}, err
	}
	return c, nil
}

// HandleInbound registers an inbound ring against the owner of the
// dialed number and tells them their phone is ringing. Returns the
// attribution so the webhook layer can decide how to answer.
func (o *Orchestrator) HandleInbound(ctx context.Context, sid, from, to string) (ActiveCall, bool, error) {
	att, ok, err := o.resolver.Resolve(ctx, from, to)
	if err != nil {
		return ActiveCall{}, false, err
	}
	if !ok || att.Direction != routing.DirectionInbound {
		return ActiveCall{}, false, nil
	}

	c := ActiveCall{
		ID:        uuid.NewString(),
		UserID:    att.UserID,
		SID:       sid,
		From:      from,
		To:        to,
		Direction: DirectionInbound,
		Status:    "ringing",
		StartedAt: o.clock().UTC(),
	}
	if err := o.tracker.Create(ctx, c); err != nil {
		return ActiveCall{}, false, err
	}
	o.notifier.Notify(att.UserID, "incoming_call", map[string]string{
		"call_id": c.ID,
		"sid":     sid,
		"from":    from,
		"to":      to,
	})
	return c, true, nil
}

// AttachOutbound binds the provider SID from the first outbound webhook
// to the pending entry created by Initiate. Calls bridged without a
// prior Initiate get a fresh tracker entry so status events still find
// their attribution.
func (o *Orchestrator) AttachOutbound(ctx context.Context, callID, sid, from, to string) error {
	if callID != "" {
		if _, ok, err := o.tracker.FindByID(ctx, callID); err != nil {
			return err
		} else if ok {
			return o.tracker.AttachSID(ctx, callID, sid, "initiated")
		}
	}

	att, ok, err := o.resolver.Resolve(ctx, from, to)
	if err != nil {
		return err
	}
	if !ok {
		logger.From(ctx).Warn("outbound bridge with no attribution", "sid", sid, "from", from, "to", to)
		return nil
	}
	return o.tracker.Create(ctx, ActiveCall{
		ID:        uuid.NewString(),
		UserID:    att.UserID,
		SID:       sid,
		From:      from,
		To:        to,
		Direction: DirectionOutbound,
		Status:    "initiated",
		StartedAt: o.clock().UTC(),
	})
}

// HandleStatusEvent processes a call-status webhook.
//
// Non-terminal statuses only refresh the tracker. Terminal statuses
// settle billing and write the permanent record exactly once: a
// duplicate delivery, or an event for a call nobody owns, is a
// successful no-op so the provider stops retrying.
func (o *Orchestrator) HandleStatusEvent(ctx context.Context, ev StatusEvent) error {
	log := logger.From(ctx)

	if !IsTerminalStatus(ev.Status) {
		if c, ok, err := o.tracker.FindBySID(ctx, ev.SID); err != nil {
			return err
		} else if ok {
			return o.tracker.UpdateStatus(ctx, c.ID, ev.Status)
		}
		return nil
	}

	if exists, err := o.records.ExistsBySID(ctx, ev.SID); err != nil {
		return err
	} else if exists {
		log.Info("duplicate call status event", "sid", ev.SID, "status", ev.Status)
		return nil
	}

	var userID string
	var direction Direction
	active, tracked, err := o.tracker.FindBySID(ctx, ev.SID)
	if err != nil {
		return err
	}
	if tracked {
		userID = active.UserID
		direction = active.Direction
	} else {
		// The tracker entry is gone (restart, TTL, webhook raced the
		// bridge). Fall back to attributing by the numbers themselves.
		att, ok, err := o.resolver.Resolve(ctx, ev.From, ev.To)
		if err != nil {
			return err
		}
		if !ok {
			log.Warn("unattributable call status event", "sid", ev.SID, "from", ev.From, "to", ev.To)
			return nil
		}
		userID = att.UserID
		direction = Direction(att.Direction)
	}

	now := o.clock().UTC()
	started := now.Add(-time.Duration(ev.DurationSeconds) * time.Second)
	if tracked && !active.StartedAt.IsZero() {
		started = active.StartedAt
	}

	// Claim the SID before touching money. The unique index on sid
	// picks exactly one winner among concurrent duplicate deliveries,
	// and only the winner settles.
	inserted, err := o.records.Insert(ctx, CallRecord{
		ID:              uuid.NewString(),
		UserID:          userID,
		SID:             ev.SID,
		From:            ev.From,
		To:              ev.To,
		Direction:       direction,
		Status:          RecordStatus(ev.Status, direction),
		DurationSeconds: ev.DurationSeconds,
		StartedAt:       started,
		EndedAt:         now,
	})
	if err != nil {
		return err
	}
	if !inserted {
		// Lost the insert race with a concurrent duplicate delivery.
		log.Info("call record already written", "sid", ev.SID)
		return nil
	}

	// The claim stands even if settlement fails: the call goes
	// unbilled rather than double-billed on a provider retry.
	cost, err := o.biller.SettleCall(ctx, userID, ev.From, ev.DurationSeconds, string(direction), ev.SID)
	if err != nil {
		return err
	}
	if cost > 0 {
		if err := o.records.SetCost(ctx, ev.SID, cost); err != nil {
			return err
		}
	}

	if tracked {
		if err := o.tracker.Delete(ctx, active); err != nil {
			log.Warn("failed to clear active call", "call_id", active.ID, "error", err)
		}
	}

	o.notifier.Notify(userID, "call_ended", map[string]any{
		"sid":        ev.SID,
		"status":     RecordStatus(ev.Status, direction),
		"duration":   ev.DurationSeconds,
		"cost_minor": cost,
	})
	return nil
}

// End hangs up one of the user's in-flight calls.
func (o *Orchestrator) End(ctx context.Context, userID, callID string) error {
	c, ok, err := o.tracker.FindByID(ctx, callID)
	if err != nil {
		return err
	}
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	if c.SID != "" {
		if err := o.provider.CompleteCall(ctx, c.SID); err != nil {
			return err
		}
		// The terminal webhook will record and clean up.
		return nil
	}
	// Never reached the provider; just drop the pending entry.
	return o.tracker.Delete(ctx, c)
}

// EndAll hangs up everything the user has in flight. Failures on one
// call do not stop the others; the first error is reported.
func (o *Orchestrator) EndAll(ctx context.Context, userID string) error {
	active, err := o.tracker.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	var firstErr error
	for _, c := range active {
		if err := o.End(ctx, userID, c.ID); err != nil {
			logger.From(ctx).Warn("failed to end call", "call_id", c.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (o *Orchestrator) Active(ctx context.Context, userID string) ([]ActiveCall, error) {
	return o.tracker.ListByUser(ctx, userID)
}

func (o *Orchestrator) History(ctx context.Context, userID string, limit int) ([]CallRecord, error) {
	return o.records.History(ctx, userID, limit)
}
