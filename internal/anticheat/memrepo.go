package anticheat

import (
	"context"
	"sync"
	"time"

	"github.com/playforge/tabletop-server/internal/domain"
)

// memrepo is a development-only in-memory Repository used when no database
// is configured, and by tests.
type memrepo struct {
	mu         sync.Mutex
	nextID     int64
	violations []*domain.Violation
	bans       []*domain.Ban
}

func NewMemoryRepository() Repository {
	return &memrepo{}
}

func (m *memrepo) InsertViolation(ctx context.Context, v *domain.Violation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *v
	cp.ID = m.nextID
	m.violations = append(m.violations, &cp)
	v.ID = cp.ID
	return nil
}

func (m *memrepo) CountViolationsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, v := range m.violations {
		if v.UserID == userID && !v.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memrepo) InsertBan(ctx context.Context, b *domain.Ban) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *b
	cp.ID = m.nextID
	m.bans = append(m.bans, &cp)
	b.ID = cp.ID
	return nil
}

func (m *memrepo) ActiveBan(ctx context.Context, userID string, now time.Time) (*domain.Ban, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.bans) - 1; i >= 0; i-- {
		b := m.bans[i]
		if b.UserID == userID && b.Active(now) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}
