package voicemail

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	byURL map[string]Voicemail
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byURL: make(map[string]Voicemail)}
}

func (m *MemoryRepo) Insert(_ context.Context, v Voicemail) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byURL[v.RecordingURL]; dup {
		return false, nil
	}
	m.byURL[v.RecordingURL] = v
	return true, nil
}

func (m *MemoryRepo) SetDuration(_ context.Context, recordingURL string, durationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.byURL[recordingURL]; ok {
		v.DurationSeconds = durationSeconds
		m.byURL[recordingURL] = v
	}
	return nil
}

func (m *MemoryRepo) ListByUser(_ context.Context, userID string, limit int) ([]Voicemail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Voicemail
	for _, v := range m.byURL {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepo) MarkRead(_ context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for url, v := range m.byURL {
		if v.ID == id && v.UserID == userID {
			v.Read = true
			m.byURL[url] = v
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepo) Delete(_ context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for url, v := range m.byURL {
		if v.ID == id && v.UserID == userID {
			delete(m.byURL, url)
			return true, nil
		}
	}
	return false, nil
}
