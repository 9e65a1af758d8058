package numbers

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	rows map[string]VirtualNumber
}

func NewMemoryRepo(rows ...VirtualNumber) *MemoryRepo {
	m := &MemoryRepo{rows: make(map[string]VirtualNumber)}
	for _, n := range rows {
		m.rows[n.ID] = n
	}
	return m
}

func (m *MemoryRepo) FindByID(_ context.Context, id string) (VirtualNumber, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.rows[id]
	return n, ok, nil
}

func (m *MemoryRepo) FindAssignedByPhone(_ context.Context, phoneNumber string) (VirtualNumber, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.rows {
		if n.PhoneNumber == phoneNumber && n.Status == StatusAssigned {
			return n, true, nil
		}
	}
	return VirtualNumber{}, false, nil
}

func (m *MemoryRepo) FindAssignedByUser(_ context.Context, userID string) ([]VirtualNumber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []VirtualNumber
	for _, n := range m.rows {
		if n.UserID == userID && n.Status == StatusAssigned {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MemoryRepo) FindAvailable(_ context.Context, countryCode string) ([]VirtualNumber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []VirtualNumber
	for _, n := range m.rows {
		if n.Status != StatusAvailable {
			continue
		}
		if countryCode != "" && n.CountryCode != countryCode {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *MemoryRepo) ClaimPaid(ctx context.Context, id, userID string, amountMinor int64, at time.Time, w Debiter) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok || n.Status != StatusAvailable {
		return false, ErrNotAvailable
	}
	charged, err := w.DebitTx(ctx, nil, userID, amountMinor, "number_rental", id)
	if err != nil || !charged {
		return false, err
	}
	next := at.Add(RentalPeriod)
	n.Status = StatusAssigned
	n.UserID = userID
	n.AssignedAt = &at
	n.NextBillingAt = &next
	m.rows[id] = n
	return true, nil
}

func (m *MemoryRepo) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok {
		return nil
	}
	n.Status = StatusAvailable
	n.UserID = ""
	n.AssignedAt = nil
	n.NextBillingAt = nil
	m.rows[id] = n
	return nil
}

func (m *MemoryRepo) Insert(_ context.Context, n VirtualNumber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[n.ID] = n
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *MemoryRepo) List(_ context.Context) ([]VirtualNumber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]VirtualNumber, 0, len(m.rows))
	for _, n := range m.rows {
		out = append(out, n)
	}
	return out, nil
}
