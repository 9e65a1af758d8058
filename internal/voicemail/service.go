package voicemail

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"callbridge/internal/calls"
	"callbridge/internal/phone"
	"callbridge/internal/routing"
	"callbridge/pkg/logger"
)

var ErrNotFound = errors.New("voicemail not found")

// ActiveCallLookup finds the in-flight call a recording belongs to.
type ActiveCallLookup interface {
	FindBySID(ctx context.Context, sid string) (calls.ActiveCall, bool, error)
}

// Attributor is the number-based fallback when the tracker entry is
// already gone.
type Attributor interface {
	Resolve(ctx context.Context, from, to string) (routing.Attribution, bool, error)
}

// RecordBackfill writes the recording URL onto the finished call record.
type RecordBackfill interface {
	SetVoicemailURL(ctx context.Context, sid, url string) error
}

// Notifier pushes an event to a user's live connections.
type Notifier interface {
	Notify(userID, event string, payload any)
}

// Service stores and serves voicemails.
type Service struct {
	repo     Repository
	tracker  ActiveCallLookup
	resolver Attributor
	records  RecordBackfill
	notifier Notifier
	clock    func() time.Time
}

func NewService(repo Repository, tracker ActiveCallLookup, resolver Attributor, records RecordBackfill, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		tracker:  tracker,
		resolver: resolver,
		records:  records,
		notifier: notifier,
		clock:    time.Now,
	}
}

// SaveRecording attributes and stores a finished recording. The owner
// comes from the in-flight call when it is still tracked, otherwise
// from the dialed number. An unattributable recording is dropped as a
// successful no-op.
func (s *Service) SaveRecording(ctx context.Context, callSID, from, to, recordingURL string, durationSeconds int) error {
	log := logger.From(ctx)
	from = phone.Normalize(from)
	to = phone.Normalize(to)

	var userID string
	if active, ok, err := s.tracker.FindBySID(ctx, callSID); err != nil {
		return err
	} else if ok {
		userID = active.UserID
	} else {
		att, ok, err := s.resolver.Resolve(ctx, from, to)
		if err != nil {
			return err
		}
		if !ok {
			log.Warn("unattributable voicemail dropped", "call_sid", callSID, "to", to)
			return nil
		}
		userID = att.UserID
	}

	inserted, err := s.repo.Insert(ctx, Voicemail{
		ID:              uuid.NewString(),
		UserID:          userID,
		CallSID:         callSID,
		From:            from,
		RecordingURL:    recordingURL,
		DurationSeconds: durationSeconds,
		CreatedAt:       s.clock().UTC(),
	})
	if err != nil {
		return err
	}
	if !inserted {
		log.Info("duplicate voicemail recording", "call_sid", callSID)
		return nil
	}

	// Best effort: the call record may not exist yet if the recording
	// callback outran the terminal status. The duration callback gives
	// us a second chance below.
	if err := s.records.SetVoicemailURL(ctx, callSID, recordingURL); err != nil {
		log.Warn("voicemail backfill failed", "call_sid", callSID, "error", err)
	}

	s.notifier.Notify(userID, "new_voicemail", map[string]any{
		"call_sid": callSID,
		"from":     from,
		"duration": durationSeconds,
	})
	return nil
}

// SetDuration applies the authoritative duration from the recording
// status callback.
func (s *Service) SetDuration(ctx context.Context, recordingURL string, durationSeconds int) error {
	return s.repo.SetDuration(ctx, recordingURL, durationSeconds)
}

func (s *Service) List(ctx context.Context, userID string, limit int) ([]Voicemail, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	ok, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	ok, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
