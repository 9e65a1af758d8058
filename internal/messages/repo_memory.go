package messages

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests, enforcing the same
// SID uniqueness the Postgres table does.
type MemoryRepo struct {
	mu    sync.Mutex
	bySID map[string]Message
	order []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{bySID: make(map[string]Message)}
}

func (m *MemoryRepo) Insert(_ context.Context, msg Message) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.bySID[msg.SID]; dup {
		return false, nil
	}
	m.bySID[msg.SID] = msg
	m.order = append(m.order, msg.SID)
	return true, nil
}

func (m *MemoryRepo) History(_ context.Context, userID string, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, sid := range m.order {
		if msg := m.bySID[sid]; msg.UserID == userID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepo) Conversation(_ context.Context, userID, peer string, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, sid := range m.order {
		msg := m.bySID[sid]
		if msg.UserID == userID && (msg.From == peer || msg.To == peer) {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepo) MarkRead(_ context.Context, userID, peer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sid, msg := range m.bySID {
		if msg.UserID == userID && msg.From == peer && msg.Direction == DirectionInbound {
			msg.Read = true
			m.bySID[sid] = msg
		}
	}
	return nil
}
