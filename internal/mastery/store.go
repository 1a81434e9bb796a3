package mastery

import (
	"context"
	"time"
)

// Profile is the persisted ladder state for one player.
type Profile struct {
	UserID        string
	Rank          Rank
	TotalWins     int
	TotalLosses   int
	CurrentStreak int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Store persists ladder state. ApplyResult must be atomic per player pair: a
// user finishing two matches in quick succession must not lose an update.
type Store interface {
	// GetProfile returns nil without error when the user has no profile yet.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	// EnsureProfile returns the existing profile or creates one at the
	// ladder entry point.
	EnsureProfile(ctx context.Context, userID string) (*Profile, error)
	// ApplyResult advances the winner and regresses the loser under a
	// single read-modify-write unit.
	ApplyResult(ctx context.Context, winnerID, loserID string) (winner, loser *Profile, err error)
}
