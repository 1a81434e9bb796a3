package anticheat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/playforge/tabletop-server/internal/domain"
)

type pgrepo struct {
	db *sql.DB
}

// NewPostgresRepository wraps an open connection pool; the caller owns db.
func NewPostgresRepository(db *sql.DB) Repository {
	return &pgrepo{db: db}
}

func (r *pgrepo) InsertViolation(ctx context.Context, v *domain.Violation) error {
	const query = `
		INSERT INTO anti_cheat_logs (user_id, session_id, violation_type, details, severity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		v.UserID, v.SessionID, v.Type, v.Details, v.Severity, v.CreatedAt,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("insert anti-cheat log: %w", err)
	}
	return nil
}

func (r *pgrepo) CountViolationsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM anti_cheat_logs
		WHERE user_id = $1 AND created_at >= $2`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count anti-cheat logs: %w", err)
	}
	return count, nil
}

func (r *pgrepo) InsertBan(ctx context.Context, b *domain.Ban) error {
	const query = `
		INSERT INTO user_bans (user_id, reason, banned_until, is_permanent, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var until sql.NullTime
	if !b.BannedUntil.IsZero() {
		until = sql.NullTime{Time: b.BannedUntil, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query,
		b.UserID, b.Reason, until, b.IsPermanent, b.CreatedAt,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("insert user ban: %w", err)
	}
	return nil
}

func (r *pgrepo) ActiveBan(ctx context.Context, userID string, now time.Time) (*domain.Ban, error) {
	const query = `
		SELECT id, user_id, reason, banned_until, is_permanent, created_at
		FROM user_bans
		WHERE user_id = $1 AND (is_permanent OR banned_until > $2)
		ORDER BY created_at DESC
		LIMIT 1`
	var (
		b     domain.Ban
		until sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, userID, now).Scan(
		&b.ID, &b.UserID, &b.Reason, &until, &b.IsPermanent, &b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user ban: %w", err)
	}
	if until.Valid {
		b.BannedUntil = until.Time
	}
	return &b, nil
}
