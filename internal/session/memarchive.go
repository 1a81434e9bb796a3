package session

import (
	"context"
	"sort"
	"sync"

	"github.com/playforge/tabletop-server/internal/domain"
)

// memoryArchive keeps archived sessions in memory. Development and tests
// only; the tree is lost on restart.
type memoryArchive struct {
	mu      sync.Mutex
	records map[string]domain.SessionArchive
}

func NewMemoryArchive() Archive {
	return &memoryArchive{records: make(map[string]domain.SessionArchive)}
}

func (m *memoryArchive) SaveArchive(_ context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[s.ID] = domain.SessionArchive{
		SessionID:  s.ID,
		UserID:     s.UserID,
		OpponentID: s.OpponentID,
		GameType:   s.GameType,
		Difficulty: s.Difficulty,
		Result:     string(s.Result),
		MoveCount:  s.MoveCount(),
		Checksum:   s.Checksum,
		StartedAt:  s.CreatedAt,
		EndedAt:    s.UpdatedAt,
		Duration:   s.UpdatedAt.Sub(s.CreatedAt),
	}
	return nil
}

func (m *memoryArchive) History(_ context.Context, userID string, limit int) ([]domain.SessionArchive, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SessionArchive
	for _, a := range m.records {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
