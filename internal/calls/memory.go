package calls

import (
	"context"
	"sort"
	"sync"
)

// MemoryRecordStore is an in-memory RecordStore for tests. It enforces
// the same SID uniqueness the Postgres table does.
type MemoryRecordStore struct {
	mu      sync.Mutex
	bySID   map[string]CallRecord
	ordered []string
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{bySID: make(map[string]CallRecord)}
}

func (m *MemoryRecordStore) Insert(_ context.Context, r CallRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.bySID[r.SID]; dup {
		return false, nil
	}
	m.bySID[r.SID] = r
	m.ordered = append(m.ordered, r.SID)
	return true, nil
}

func (m *MemoryRecordStore) ExistsBySID(_ context.Context, sid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bySID[sid]
	return ok, nil
}

func (m *MemoryRecordStore) FindBySID(_ context.Context, sid string) (CallRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.bySID[sid]
	return r, ok, nil
}

func (m *MemoryRecordStore) History(_ context.Context, userID string, limit int) ([]CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CallRecord
	for _, sid := range m.ordered {
		if r := m.bySID[sid]; r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRecordStore) SetCost(_ context.Context, sid string, costMinor int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.bySID[sid]; ok {
		r.CostMinor = costMinor
		m.bySID[sid] = r
	}
	return nil
}

func (m *MemoryRecordStore) SetVoicemailURL(_ context.Context, sid, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.bySID[sid]; ok {
		r.VoicemailURL = url
		m.bySID[sid] = r
	}
	return nil
}

// MemoryTracker is an in-memory ActiveStore for tests.
type MemoryTracker struct {
	mu   sync.Mutex
	byID map[string]ActiveCall
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{byID: make(map[string]ActiveCall)}
}

func (m *MemoryTracker) Create(_ context.Context, c ActiveCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[c.ID] = c
	return nil
}

func (m *MemoryTracker) FindByID(_ context.Context, id string) (ActiveCall, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	return c, ok, nil
}

func (m *MemoryTracker) FindBySID(_ context.Context, sid string) (ActiveCall, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.SID == sid && sid != "" {
			return c, true, nil
		}
	}
	return ActiveCall{}, false, nil
}

func (m *MemoryTracker) AttachSID(_ context.Context, id, sid, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byID[id]; ok {
		c.SID = sid
		if status != "" {
			c.Status = status
		}
		m.byID[id] = c
	}
	return nil
}

func (m *MemoryTracker) UpdateStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byID[id]; ok {
		c.Status = status
		m.byID[id] = c
	}
	return nil
}

func (m *MemoryTracker) Delete(_ context.Context, c ActiveCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, c.ID)
	return nil
}

func (m *MemoryTracker) ListByUser(_ context.Context, userID string) ([]ActiveCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ActiveCall
	for _, c := range m.byID {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}
