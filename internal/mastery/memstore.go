package mastery

import (
	"context"
	"sync"
	"time"
)

// memstore is a development-only in-memory Store used when no database is
// configured, and by tests.
type memstore struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

func NewMemoryStore() Store {
	return &memstore{profiles: make(map[string]*Profile)}
}

func (m *memstore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memstore) EnsureProfile(ctx context.Context, userID string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.ensureLocked(userID)
	return &cp, nil
}

func (m *memstore) ApplyResult(ctx context.Context, winnerID, loserID string) (*Profile, *Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	w := m.ensureLocked(winnerID)
	w.Rank = Advance(w.Rank, true)
	w.TotalWins++
	w.CurrentStreak++
	w.UpdatedAt = now

	l := m.ensureLocked(loserID)
	l.Rank = Advance(l.Rank, false)
	l.TotalLosses++
	l.CurrentStreak = 0
	l.UpdatedAt = now

	wc, lc := *w, *l
	return &wc, &lc, nil
}

func (m *memstore) ensureLocked(userID string) *Profile {
	if p, ok := m.profiles[userID]; ok {
		return p
	}
	now := time.Now()
	p := &Profile{UserID: userID, Rank: NewRank(), CreatedAt: now, UpdatedAt: now}
	m.profiles[userID] = p
	return p
}
