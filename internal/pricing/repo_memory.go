package pricing

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and
// early development. Not intended for production.
type MemoryRepo struct {
	mu   sync.RWMutex
	rows map[string]Pricing
}

func NewMemoryRepo(rows ...Pricing) *MemoryRepo {
	m := &MemoryRepo{rows: make(map[string]Pricing)}
	for _, p := range rows {
		m.rows[p.CountryCode] = p
	}
	return m
}

func (r *MemoryRepo) FindByCountry(_ context.Context, countryCode string) (Pricing, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.rows[countryCode]
	return p, ok, nil
}

func (r *MemoryRepo) Upsert(_ context.Context, p Pricing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.CountryCode] = p
	return nil
}

func (r *MemoryRepo) List(_ context.Context) ([]Pricing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Pricing, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, p)
	}
	return out, nil
}
