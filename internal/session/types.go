// Package session is the server-side integrity layer for recorded games:
// checksum-protected state, move timing and history validation, and the
// session lifecycle from start to resolved result.
package session

import (
	"encoding/json"
	"time"
)

// MoveRecord is the envelope the layer can always read regardless of game
// type. Data carries the game-specific payload untouched.
type MoveRecord struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
}

// GameState is opaque to the integrity layer beyond the move envelope;
// Fields passes game-specific state through untouched.
type GameState struct {
	Moves      []MoveRecord               `json:"moves"`
	GameType   string                     `json:"game_type"`
	Difficulty string                     `json:"difficulty,omitempty"`
	OpponentID string                     `json:"opponent_id,omitempty"`
	Fields     map[string]json.RawMessage `json:"fields,omitempty"`
}

// Result of a finished session, from the session owner's perspective.
type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

func (r Result) valid() bool {
	return r == ResultWin || r == ResultLoss || r == ResultDraw
}

// Session is stored as JSON in Redis under sess:<id>. Token is the
// per-session secret bound into the checksum; it never leaves the server.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	GameType   string    `json:"game_type"`
	Difficulty string    `json:"difficulty,omitempty"`
	OpponentID string    `json:"opponent_id,omitempty"`
	Token      string    `json:"token"`
	State      GameState `json:"state"`
	Checksum   string    `json:"checksum"`
	IsActive   bool      `json:"is_active"`
	Result     Result    `json:"result,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MoveCount is the authoritative move count for the session.
func (s *Session) MoveCount() int { return len(s.State.Moves) }

// Errors. Policy and integrity failures are sentinels so the boundary can
// map them; integrity errors are always logged before being returned.
var (
	ErrBanned            = errf("account is banned for violating game rules")
	ErrRateLimited       = errf("too many games started, wait before starting a new one")
	ErrUnauthorized      = errf("session belongs to another user")
	ErrSessionNotFound   = errf("game session not found")
	ErrInactiveSession   = errf("game session is not active")
	ErrTimingViolation   = errf("moves submitted too fast")
	ErrHistoryMismatch   = errf("move history does not match server records")
	ErrChecksumMismatch  = errf("game state checksum mismatch")
	ErrConcurrentUpdate  = errf("concurrent session update detected")
	ErrInvalidResult     = errf("unknown session result")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
