package reporting

import (
	"context"
	"errors"
	"time"

	"callbridge/internal/calls"
	"callbridge/internal/messages"
	"callbridge/internal/wallet"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations should query immutable sources (call records, the
// wallet ledger, stored messages) and always filter by user.

type Repository interface {
	ListCallRecords(ctx context.Context, userID string, from, to time.Time) ([]calls.CallRecord, error)
	ListMessages(ctx context.Context, userID string, from, to time.Time) ([]messages.Message, error)
	ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]wallet.Transaction, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) UsageSummary(ctx context.Context, req UsageSummaryRequest) (UsageSummary, error) {
	if req.UserID == "" {
		return UsageSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return UsageSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return UsageSummary{}, errors.New("reporting: repository not configured")
	}

	records, err := s.repo.ListCallRecords(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return UsageSummary{}, err
	}

	out := UsageSummary{UserID: req.UserID}
	for _, r := range records {
		out.TotalCalls++
		out.TotalDurationSeconds += r.DurationSeconds
		out.CallSpendMinor += r.CostMinor
		switch r.Status {
		case "completed":
			out.CompletedCalls++
		case "missed", "no-answer", "busy":
			out.MissedCalls++
		case "failed", "canceled":
			out.FailedCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}

	msgs, err := s.repo.ListMessages(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return UsageSummary{}, err
	}
	for _, m := range msgs {
		if m.Direction == messages.DirectionOutbound {
			out.MessagesSent++
			out.SMSSpendMinor += m.CostMinor
		} else {
			out.MessagesReceived++
		}
	}

	out.TotalSpendMinor = out.CallSpendMinor + out.SMSSpendMinor
	return out, nil
}

func (s *Service) SpendSummary(ctx context.Context, req SpendSummaryRequest) (SpendSummary, error) {
	if req.UserID == "" {
		return SpendSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return SpendSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return SpendSummary{}, errors.New("reporting: repository not configured")
	}

	txns, err := s.repo.ListTransactions(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return SpendSummary{}, err
	}

	out := SpendSummary{UserID: req.UserID, Currency: "USD", ByMethodMinor: make(map[string]int64)}
	for _, t := range txns {
		// Pending and rejected entries never moved money.
		if t.Status != wallet.TxStatusCompleted {
			continue
		}
		switch t.Type {
		case wallet.TxTypeCredit:
			out.TotalCreditMinor += t.AmountMinor
		case wallet.TxTypeDebit:
			out.TotalDebitMinor += t.AmountMinor
			out.ByMethodMinor[t.Method] += t.AmountMinor
		}
	}
	out.NetDeltaMinor = out.TotalCreditMinor - out.TotalDebitMinor
	return out, nil
}
