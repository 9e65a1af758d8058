package wallet

import (
	"context"
	"database/sql"
	"testing"
)

// The money paths are Postgres-specific (conditional UPDATE guards,
// RETURNING); end-to-end behavior is covered by integration tests
// against Postgres. What we can safely unit-test without a DB is input
// validation, which must reject before any SQL runs.

func TestDebitIfSufficient_RejectsInvalidArgs(t *testing.T) {
	svc := NewService((*sql.DB)(nil))

	if _, err := svc.DebitIfSufficient(context.Background(), "", 100, "call", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.DebitIfSufficient(context.Background(), "u1", 0, "call", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.DebitIfSufficient(context.Background(), "u1", -5, "call", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.DebitIfSufficient(context.Background(), "u1", 100, "", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRequestTopUp_RejectsInvalidArgs(t *testing.T) {
	svc := NewService((*sql.DB)(nil))

	if _, err := svc.RequestTopUp(context.Background(), "", 100, "usdt", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.RequestTopUp(context.Background(), "u1", 0, "usdt", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.RequestTopUp(context.Background(), "u1", 100, "cash", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument for unsupported method, got %v", err)
	}
}

func TestApproveTopUp_RejectsEmptyID(t *testing.T) {
	svc := NewService((*sql.DB)(nil))
	if _, err := svc.ApproveTopUp(context.Background(), ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := svc.RejectTopUp(context.Background(), ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
