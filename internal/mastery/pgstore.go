package mastery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

type pgstore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection pool; the caller owns db.
func NewPostgresStore(db *sql.DB) Store {
	return &pgstore{db: db}
}

func (s *pgstore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, `
		SELECT user_id, rank_level, sub_rank, fragments,
		       total_wins, total_losses, current_streak,
		       created_at, updated_at
		FROM mastery_ranks
		WHERE user_id = $1`, userID))
}

func (s *pgstore) EnsureProfile(ctx context.Context, userID string) (*Profile, error) {
	const query = `
		INSERT INTO mastery_ranks (user_id, rank_level, sub_rank, fragments, total_wins, total_losses, current_streak, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`
	r := NewRank()
	if _, err := s.db.ExecContext(ctx, query, userID, r.Level, r.SubRank, r.Fragments); err != nil {
		return nil, fmt.Errorf("ensure mastery profile: %w", err)
	}
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("mastery profile missing after ensure for %s", userID)
	}
	return p, nil
}

// ApplyResult runs both rank updates in one transaction with row locks so two
// concurrent match resolutions for the same player serialize instead of
// clobbering each other.
func (s *pgstore) ApplyResult(ctx context.Context, winnerID, loserID string) (*Profile, *Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin mastery tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// deterministic lock order avoids deadlocks between crossing updates
	first, second := winnerID, loserID
	if loserID < winnerID {
		first, second = loserID, winnerID
	}
	for _, id := range []string{first, second} {
		if err := ensureTx(ctx, tx, id); err != nil {
			return nil, nil, err
		}
	}

	winner, err := advanceTx(ctx, tx, winnerID, true)
	if err != nil {
		return nil, nil, err
	}
	loser, err := advanceTx(ctx, tx, loserID, false)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit mastery tx: %w", err)
	}
	return winner, loser, nil
}

func ensureTx(ctx context.Context, tx *sql.Tx, userID string) error {
	r := NewRank()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO mastery_ranks (user_id, rank_level, sub_rank, fragments, total_wins, total_losses, current_streak, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`, userID, r.Level, r.SubRank, r.Fragments)
	if err != nil {
		return fmt.Errorf("ensure mastery row for %s: %w", userID, err)
	}
	return nil
}

func advanceTx(ctx context.Context, tx *sql.Tx, userID string, won bool) (*Profile, error) {
	p, err := scanProfile(tx.QueryRowContext(ctx, `
		SELECT user_id, rank_level, sub_rank, fragments,
		       total_wins, total_losses, current_streak,
		       created_at, updated_at
		FROM mastery_ranks
		WHERE user_id = $1
		FOR UPDATE`, userID))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("mastery row vanished for %s", userID)
	}

	p.Rank = Advance(p.Rank, won)
	if won {
		p.TotalWins++
		p.CurrentStreak++
	} else {
		p.TotalLosses++
		p.CurrentStreak = 0
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE mastery_ranks
		SET rank_level = $2, sub_rank = $3, fragments = $4,
		    total_wins = $5, total_losses = $6, current_streak = $7,
		    updated_at = NOW()
		WHERE user_id = $1`,
		p.UserID, p.Rank.Level, p.Rank.SubRank, p.Rank.Fragments,
		p.TotalWins, p.TotalLosses, p.CurrentStreak,
	)
	if err != nil {
		return nil, fmt.Errorf("update mastery row for %s: %w", userID, err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.UserID, &p.Rank.Level, &p.Rank.SubRank, &p.Rank.Fragments,
		&p.TotalWins, &p.TotalLosses, &p.CurrentStreak,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select mastery profile: %w", err)
	}
	return &p, nil
}
