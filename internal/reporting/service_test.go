package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"callbridge/internal/calls"
	"callbridge/internal/messages"
	"callbridge/internal/wallet"
)

func window() TimeRange {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return TimeRange{From: from, To: from.AddDate(0, 1, 0)}
}

func TestUsageSummary_Aggregates(t *testing.T) {
	rng := window()
	inWindow := rng.From.Add(24 * time.Hour)

	repo := NewMemoryRepo()
	repo.Records = []calls.CallRecord{
		{UserID: "u1", Status: "completed", DurationSeconds: 120, CostMinor: 20, EndedAt: inWindow},
		{UserID: "u1", Status: "missed", EndedAt: inWindow},
		{UserID: "u1", Status: "failed", EndedAt: inWindow},
		{UserID: "u1", Status: "completed", DurationSeconds: 60, CostMinor: 10, EndedAt: rng.To.Add(time.Hour)}, // outside
		{UserID: "u2", Status: "completed", DurationSeconds: 300, EndedAt: inWindow},                            // other user
	}
	repo.Msgs = []messages.Message{
		{UserID: "u1", Direction: messages.DirectionOutbound, CostMinor: 5, CreatedAt: inWindow},
		{UserID: "u1", Direction: messages.DirectionInbound, CreatedAt: inWindow},
	}

	svc := NewService(repo)
	out, err := svc.UsageSummary(context.Background(), UsageSummaryRequest{UserID: "u1", Range: rng})
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if out.TotalCalls != 3 || out.CompletedCalls != 1 || out.MissedCalls != 1 || out.FailedCalls != 1 {
		t.Fatalf("unexpected call counts: %+v", out)
	}
	if out.TotalDurationSeconds != 120 || out.AverageDurationSeconds != 40 {
		t.Fatalf("unexpected durations: %+v", out)
	}
	if out.MessagesSent != 1 || out.MessagesReceived != 1 {
		t.Fatalf("unexpected message counts: %+v", out)
	}
	if out.TotalSpendMinor != 25 {
		t.Fatalf("expected total spend 25, got %d", out.TotalSpendMinor)
	}
}

func TestSpendSummary_IgnoresPendingAndRejected(t *testing.T) {
	rng := window()
	inWindow := rng.From.Add(24 * time.Hour)

	repo := NewMemoryRepo()
	repo.Txns = []wallet.Transaction{
		{UserID: "u1", Type: wallet.TxTypeCredit, AmountMinor: 1000, Status: wallet.TxStatusCompleted, Method: "usdt", CreatedAt: inWindow},
		{UserID: "u1", Type: wallet.TxTypeDebit, AmountMinor: 150, Status: wallet.TxStatusCompleted, Method: "call", CreatedAt: inWindow},
		{UserID: "u1", Type: wallet.TxTypeDebit, AmountMinor: 5, Status: wallet.TxStatusCompleted, Method: "sms", CreatedAt: inWindow},
		{UserID: "u1", Type: wallet.TxTypeCredit, AmountMinor: 9999, Status: wallet.TxStatusPending, Method: "usdt", CreatedAt: inWindow},
		{UserID: "u1", Type: wallet.TxTypeCredit, AmountMinor: 500, Status: wallet.TxStatusRejected, Method: "usdt", CreatedAt: inWindow},
	}

	svc := NewService(repo)
	out, err := svc.SpendSummary(context.Background(), SpendSummaryRequest{UserID: "u1", Range: rng})
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if out.TotalCreditMinor != 1000 || out.TotalDebitMinor != 155 || out.NetDeltaMinor != 845 {
		t.Fatalf("unexpected totals: %+v", out)
	}
	if out.ByMethodMinor["call"] != 150 || out.ByMethodMinor["sms"] != 5 {
		t.Fatalf("unexpected method split: %+v", out.ByMethodMinor)
	}
}

func TestSummaries_RejectInvalidRequests(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if _, err := svc.UsageSummary(context.Background(), UsageSummaryRequest{Range: window()}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	bad := UsageSummaryRequest{UserID: "u1", Range: TimeRange{From: time.Now(), To: time.Now().Add(-time.Hour)}}
	if _, err := svc.UsageSummary(context.Background(), bad); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for inverted range, got %v", err)
	}
	if _, err := svc.SpendSummary(context.Background(), SpendSummaryRequest{UserID: ""}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
