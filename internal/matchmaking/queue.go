// Package matchmaking pairs queued players of comparable mastery level.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/playforge/tabletop-server/internal/anticheat"
	"github.com/playforge/tabletop-server/internal/domain"
	"github.com/playforge/tabletop-server/internal/mastery"
	"github.com/playforge/tabletop-server/internal/obslog"
	"github.com/playforge/tabletop-server/internal/ratelimit"
)

// Players idle in a queue this long are dropped on the next sweep.
const queueTTL = 10 * time.Minute

// maxRankGap is the widest mastery-level difference a pairing may span.
const maxRankGap = 1

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	ErrBanned      = staticErr("matchmaking: user is banned")
	ErrRateLimited = staticErr("matchmaking: join rate limit exceeded")
	ErrNotQueued   = staticErr("matchmaking: user is not in the queue")
	ErrNoOpponent  = staticErr("matchmaking: no compatible opponent queued")
)

// Queue is a per-game-type waiting pool in Redis. Join order is a sorted set
// scored by enqueue time; rank levels ride alongside in a hash so FindMatch
// never blocks on the database.
type Queue struct {
	rdb     *redis.Client
	limiter *ratelimit.Limiter
	cheat   *anticheat.Service
	ranks   mastery.Store
	now     func() time.Time
}

func NewQueue(rdb *redis.Client, limiter *ratelimit.Limiter, cheat *anticheat.Service, ranks mastery.Store) (*Queue, error) {
	if rdb == nil || limiter == nil || cheat == nil || ranks == nil {
		return nil, fmt.Errorf("matchmaking: all collaborators are required")
	}
	return &Queue{rdb: rdb, limiter: limiter, cheat: cheat, ranks: ranks, now: time.Now}, nil
}

// Join enqueues the user for gameType. The user's current mastery level is
// snapshotted at join time; a rank-up while waiting does not reshuffle the
// queue.
func (q *Queue) Join(ctx context.Context, userID, gameType string) error {
	userID = strings.TrimSpace(userID)
	gameType = strings.TrimSpace(gameType)
	if userID == "" || gameType == "" {
		return fmt.Errorf("matchmaking: user id and game type are required")
	}

	banned, err := q.cheat.IsUserBanned(ctx, userID)
	if err != nil {
		return err
	}
	if banned {
		return ErrBanned
	}
	allowed, err := q.limiter.Allow(ctx, userID, ratelimit.ActionMatchmakingJoin)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrRateLimited
	}

	profile, err := q.ranks.EnsureProfile(ctx, userID)
	if err != nil {
		return err
	}

	qk, rk := queueKey(gameType), rankKey(gameType)
	pipe := q.rdb.TxPipeline()
	pipe.ZAdd(ctx, qk, redis.Z{Score: float64(q.now().UnixMilli()), Member: userID})
	pipe.HSet(ctx, rk, userID, profile.Rank.Level)
	pipe.Expire(ctx, qk, queueTTL)
	pipe.Expire(ctx, rk, queueTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	obslog.L().Info("matchmaking_join",
		zap.String("user_id", userID),
		zap.String("game_type", gameType),
		zap.Int("rank_level", profile.Rank.Level),
	)
	return nil
}

// Leave removes the user from the gameType queue. ErrNotQueued when they
// were not waiting.
func (q *Queue) Leave(ctx context.Context, userID, gameType string) error {
	qk, rk := queueKey(gameType), rankKey(gameType)
	removed, err := q.rdb.ZRem(ctx, qk, userID).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotQueued
	}
	if err := q.rdb.HDel(ctx, rk, userID).Err(); err != nil {
		return err
	}
	obslog.L().Info("matchmaking_leave",
		zap.String("user_id", userID),
		zap.String("game_type", gameType),
	)
	return nil
}

// FindMatch pairs the caller with the earliest-joined compatible opponent,
// where compatible means a snapshotted mastery level within one of the
// caller's. Both players leave the queue atomically; a concurrent FindMatch
// that grabs either player first wins and this call retries the scan.
func (q *Queue) FindMatch(ctx context.Context, userID, gameType string) (*domain.Match, error) {
	userID = strings.TrimSpace(userID)
	qk, rk := queueKey(gameType), rankKey(gameType)

	var match *domain.Match
	err := q.rdb.Watch(ctx, func(tx *redis.Tx) error {
		if _, err := tx.ZScore(ctx, qk, userID).Result(); err == redis.Nil {
			return ErrNotQueued
		} else if err != nil {
			return err
		}
		myRank, err := q.rankOf(ctx, tx, rk, userID)
		if err != nil {
			return err
		}

		waiting, err := tx.ZRangeWithScores(ctx, qk, 0, -1).Result()
		if err != nil {
			return err
		}

		var opponent string
		var oppRank int
		for _, z := range waiting {
			cand, _ := z.Member.(string)
			if cand == "" || cand == userID {
				continue
			}
			r, rerr := q.rankOf(ctx, tx, rk, cand)
			if rerr != nil {
				continue
			}
			if gap := myRank - r; gap >= -maxRankGap && gap <= maxRankGap {
				opponent, oppRank = cand, r
				break
			}
		}
		if opponent == "" {
			return ErrNoOpponent
		}

		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.ZRem(ctx, qk, userID, opponent)
		pipe.HDel(ctx, rk, userID, opponent)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		match = &domain.Match{
			ID:        id,
			GameType:  gameType,
			Player1:   opponent,
			Player2:   userID,
			Rank1:     oppRank,
			Rank2:     myRank,
			CreatedAt: q.now(),
		}
		return nil
	}, qk, rk)

	if errors.Is(err, redis.TxFailedErr) {
		// queue shifted underneath us; the caller may simply retry
		return nil, ErrNoOpponent
	}
	if err != nil {
		return nil, err
	}

	obslog.L().Info("matchmaking_paired",
		zap.String("match_id", match.ID),
		zap.String("game_type", match.GameType),
		zap.String("player1", match.Player1),
		zap.String("player2", match.Player2),
	)
	return match, nil
}

// QueueSize reports how many players wait in the gameType queue.
func (q *Queue) QueueSize(ctx context.Context, gameType string) (int64, error) {
	return q.rdb.ZCard(ctx, queueKey(gameType)).Result()
}

// WithClock overrides the time source. Test hook.
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

func (q *Queue) rankOf(ctx context.Context, tx *redis.Tx, key, userID string) (int, error) {
	raw, err := tx.HGet(ctx, key, userID).Result()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

func queueKey(gameType string) string { return "mm:queue:" + strings.TrimSpace(gameType) }

func rankKey(gameType string) string { return "mm:rank:" + strings.TrimSpace(gameType) }
