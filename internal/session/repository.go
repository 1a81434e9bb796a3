package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/playforge/tabletop-server/internal/domain"
)

// Archive is the durable record of finished sessions. Live sessions stay in
// Redis; the archive backs history pages and audits.
type Archive interface {
	// SaveArchive upserts the final record of an ended session.
	SaveArchive(ctx context.Context, s *Session) error
	// History returns the most recent finished sessions for a user,
	// newest first.
	History(ctx context.Context, userID string, limit int) ([]domain.SessionArchive, error)
}

// Repository is the Postgres archive.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// DB exposes the underlying pool so sibling repositories can share it.
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveArchive upserts the final record of an ended session. Re-archiving the
// same session overwrites with the latest copy, so retries are safe.
func (r *Repository) SaveArchive(ctx context.Context, s *Session) error {
	if r == nil || r.db == nil || s == nil {
		return nil
	}

	stateRaw, err := json.Marshal(&s.State)
	if err != nil {
		return err
	}
	duration := s.UpdatedAt.Sub(s.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO game_sessions (
	    session_id, user_id, game_type, difficulty, opponent_id,
	    result, move_count, game_state, checksum,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
	  ) ON CONFLICT (session_id) DO UPDATE SET
	    result=EXCLUDED.result,
	    move_count=EXCLUDED.move_count,
	    game_state=EXCLUDED.game_state,
	    checksum=EXCLUDED.checksum,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	opponent := sql.NullString{String: s.OpponentID, Valid: s.OpponentID != ""}
	_, err = r.db.ExecContext(ctx, q,
		s.ID, s.UserID, s.GameType, s.Difficulty, opponent,
		string(s.Result), s.MoveCount(), stateRaw, s.Checksum,
		s.CreatedAt, s.UpdatedAt, duration,
	)
	return err
}

// History returns the most recent finished sessions for a user, newest first.
func (r *Repository) History(ctx context.Context, userID string, limit int) ([]domain.SessionArchive, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := `SELECT session_id, user_id, game_type, difficulty, opponent_id,
	        result, move_count, checksum, started_at, ended_at, duration_ms
	      FROM game_sessions
	      WHERE user_id = $1
	      ORDER BY ended_at DESC
	      LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SessionArchive
	for rows.Next() {
		var a domain.SessionArchive
		var opponent sql.NullString
		var durationMS int64
		if err := rows.Scan(&a.SessionID, &a.UserID, &a.GameType, &a.Difficulty, &opponent,
			&a.Result, &a.MoveCount, &a.Checksum, &a.StartedAt, &a.EndedAt, &durationMS); err != nil {
			return nil, err
		}
		if opponent.Valid {
			a.OpponentID = opponent.String
		}
		a.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, a)
	}
	return out, rows.Err()
}
