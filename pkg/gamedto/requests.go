package gamedto

import "encoding/json"

type StartSessionRequest struct {
	GameType   string `json:"gameType"`
	Difficulty string `json:"difficulty,omitempty"`
	OpponentID string `json:"opponentId,omitempty"`
}

type StartSessionResponse struct {
	Session *SessionView `json:"session"`
}

type MoveRequest struct {
	SessionID string          `json:"sessionId"`
	Move      MoveView        `json:"move"`
	GameState json.RawMessage `json:"gameState"`
}

type MoveResponse struct {
	Checksum string `json:"checksum"`
}

type EndSessionRequest struct {
	SessionID string `json:"sessionId"`
	Result    string `json:"result"`
}

type EndSessionResponse struct {
	Session *SessionView `json:"session"`
}

type BanCheckResponse struct {
	Banned bool `json:"banned"`
}

type HistoryResponse struct {
	Sessions []ArchivedSessionView `json:"sessions"`
}

type MatchmakingRequest struct {
	GameType string `json:"gameType"`
}

type MatchResponse struct {
	MatchID  string `json:"matchId"`
	GameType string `json:"gameType"`
	Player1  string `json:"player1"`
	Player2  string `json:"player2"`
}

type RankResponse struct {
	Level     int    `json:"level"`
	SubRank   int    `json:"subRank"`
	Fragments int    `json:"fragments"`
	Display   string `json:"display"`
	Wins      int    `json:"wins"`
	Losses    int    `json:"losses"`
	Streak    int    `json:"streak"`
}

type AIMoveRequest struct {
	// Board is a size×size grid; empty cells are zero pieces.
	Board      [][]PieceView `json:"board"`
	Color      string        `json:"color"`
	Difficulty string        `json:"difficulty,omitempty"`
}

type AIMoveResponse struct {
	Move     *MoveCoords `json:"move"`
	GameOver bool        `json:"gameOver"`
}
