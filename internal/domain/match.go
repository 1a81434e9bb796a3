package domain

import "time"

// Match pairs two queued players for a PvP game.
type Match struct {
	ID        string
	GameType  string
	Player1   string
	Player2   string
	Rank1     int
	Rank2     int
	CreatedAt time.Time
}
