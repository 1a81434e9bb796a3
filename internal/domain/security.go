// Package domain holds persistence-shaped records shared across services.
package domain

import "time"

// Violation is one detected anti-cheat anomaly. Rows are append-only; ban
// decisions count recent rows, they never rewrite them.
type Violation struct {
	ID        int64
	UserID    string
	SessionID string
	Type      string
	Details   string
	Severity  string
	CreatedAt time.Time
}

// Ban blocks a user either until BannedUntil or forever.
type Ban struct {
	ID          int64
	UserID      string
	Reason      string
	BannedUntil time.Time
	IsPermanent bool
	CreatedAt   time.Time
}

// Active reports whether the ban still applies at now.
func (b Ban) Active(now time.Time) bool {
	return b.IsPermanent || b.BannedUntil.After(now)
}

// SessionArchive is the immutable record of a finished game session.
type SessionArchive struct {
	ID         int64
	SessionID  string
	UserID     string
	OpponentID string
	GameType   string
	Difficulty string
	Result     string
	MoveCount  int
	Checksum   string
	StartedAt  time.Time
	EndedAt    time.Time
	Duration   time.Duration
}
