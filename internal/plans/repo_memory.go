package plans

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	plans map[string]UserPlan
}

func NewMemoryRepo(seed ...UserPlan) *MemoryRepo {
	m := &MemoryRepo{plans: make(map[string]UserPlan)}
	for _, p := range seed {
		m.plans[p.ID] = p
	}
	return m
}

func (m *MemoryRepo) FindByID(_ context.Context, id string) (UserPlan, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	return p, ok, nil
}

func (m *MemoryRepo) FindActive(_ context.Context, userID, countryCode string) (UserPlan, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best UserPlan
	found := false
	for _, p := range m.plans {
		if p.UserID != userID || p.CountryCode != countryCode || p.Status != StatusActive {
			continue
		}
		if !found || p.CreatedAt.After(best.CreatedAt) {
			best, found = p, true
		}
	}
	return best, found, nil
}

func (m *MemoryRepo) FindByUser(_ context.Context, userID string) ([]UserPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []UserPlan
	for _, p := range m.plans {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepo) InsertPaid(ctx context.Context, p UserPlan, amountMinor int64, w Debiter) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.plans {
		if q.UserID == p.UserID && q.CountryCode == p.CountryCode && q.Status == StatusActive {
			return false, ErrAlreadyActive
		}
	}
	charged, err := w.DebitTx(ctx, nil, p.UserID, amountMinor, "unlimited_plan", p.ID)
	if err != nil || !charged {
		return false, err
	}
	m.plans[p.ID] = p
	return true, nil
}

func (m *MemoryRepo) ConsumeMinutes(_ context.Context, id string, minutes int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok || p.Status != StatusActive || p.MinutesUsed+minutes > p.MinutesLimit {
		return false, nil
	}
	p.MinutesUsed += minutes
	m.plans[id] = p
	return true, nil
}

func (m *MemoryRepo) MarkExpired(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.plans[id]; ok && p.Status == StatusActive {
		p.Status = StatusExpired
		m.plans[id] = p
	}
	return nil
}

func (m *MemoryRepo) Cancel(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok || p.UserID != userID || p.Status != StatusActive {
		return false, nil
	}
	p.Status = StatusCanceled
	m.plans[id] = p
	return true, nil
}
