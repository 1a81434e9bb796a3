package gamedto

import (
	"encoding/json"
	"time"
)

// SessionView is the client-facing projection of a live session. The server
// secret never appears here; the token does, because the client needs it to
// co-sign future checksums.
type SessionView struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	GameType   string    `json:"gameType"`
	Difficulty string    `json:"difficulty,omitempty"`
	OpponentID string    `json:"opponentId,omitempty"`
	Token      string    `json:"token"`
	Checksum   string    `json:"checksum"`
	IsActive   bool      `json:"isActive"`
	Result     string    `json:"result,omitempty"`
	MoveCount  int       `json:"moveCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ArchivedSessionView is one row of a user's finished-game history.
type ArchivedSessionView struct {
	SessionID  string    `json:"sessionId"`
	GameType   string    `json:"gameType"`
	Difficulty string    `json:"difficulty,omitempty"`
	OpponentID string    `json:"opponentId,omitempty"`
	Result     string    `json:"result"`
	MoveCount  int       `json:"moveCount"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt"`
	DurationMS int64     `json:"durationMs"`
}

type MoveView struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type PieceView struct {
	Type  string `json:"type,omitempty"`
	Color string `json:"color,omitempty"`
}

type SquareView struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type MoveCoords struct {
	From SquareView `json:"from"`
	To   SquareView `json:"to"`
}
