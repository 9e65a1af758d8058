package reporting

import (
	"context"
	"sync"
	"time"

	"callbridge/internal/calls"
	"callbridge/internal/messages"
	"callbridge/internal/wallet"
)

// MemoryRepo is a simple in-memory repository useful for tests.

type MemoryRepo struct {
	mu      sync.Mutex
	Records []calls.CallRecord
	Msgs    []messages.Message
	Txns    []wallet.Transaction
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCallRecords(_ context.Context, userID string, from, to time.Time) ([]calls.CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []calls.CallRecord
	for _, rec := range r.Records {
		if rec.UserID == userID && !rec.EndedAt.Before(from) && rec.EndedAt.Before(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListMessages(_ context.Context, userID string, from, to time.Time) ([]messages.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []messages.Message
	for _, m := range r.Msgs {
		if m.UserID == userID && !m.CreatedAt.Before(from) && m.CreatedAt.Before(to) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListTransactions(_ context.Context, userID string, from, to time.Time) ([]wallet.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []wallet.Transaction
	for _, t := range r.Txns {
		if t.UserID == userID && !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}
