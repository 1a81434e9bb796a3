package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/playforge/tabletop-server/internal/anticheat"
	"github.com/playforge/tabletop-server/internal/crypt"
	"github.com/playforge/tabletop-server/internal/domain"
	"github.com/playforge/tabletop-server/internal/mastery"
	"github.com/playforge/tabletop-server/internal/obslog"
	"github.com/playforge/tabletop-server/internal/ratelimit"
)

// minMoveInterval is the bot-speed heuristic: two moves from a human arriving
// under 100ms apart is treated as automation. Advisory-grade, not physically
// derived.
const minMoveInterval = 100 * time.Millisecond

const defaultSessionTTL = 24 * time.Hour

// Manager owns live sessions in Redis and coordinates the collaborators
// around them: rate limits on start, violation logging on integrity
// failures, mastery updates on decisive PvP results.
type Manager struct {
	rdb     *redis.Client
	limiter *ratelimit.Limiter
	cheat   *anticheat.Service
	ranks   mastery.Store
	archive Archive
	secret  string
	ttl     time.Duration
	now     func() time.Time
}

func NewManager(rdb *redis.Client, limiter *ratelimit.Limiter, cheat *anticheat.Service, ranks mastery.Store, serverSecret string) (*Manager, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if cheat == nil {
		return nil, fmt.Errorf("anti-cheat service is required")
	}
	if ranks == nil {
		return nil, fmt.Errorf("mastery store is required")
	}
	if strings.TrimSpace(serverSecret) == "" {
		return nil, fmt.Errorf("server secret is required")
	}
	return &Manager{
		rdb:     rdb,
		limiter: limiter,
		cheat:   cheat,
		ranks:   ranks,
		secret:  serverSecret,
		ttl:     defaultSessionTTL,
		now:     time.Now,
	}, nil
}

// WithTTL overrides how long sessions and their owner index live in Redis.
func (m *Manager) WithTTL(ttl time.Duration) *Manager {
	if ttl > 0 {
		m.ttl = ttl
	}
	return m
}

// AttachArchive wires durable storage for finished sessions.
func (m *Manager) AttachArchive(a Archive) {
	if m != nil {
		m.archive = a
	}
}

// Start opens a new session for userID. Fails with ErrBanned for banned
// users and ErrRateLimited past the game_start policy; neither failure
// creates a session record.
func (m *Manager) Start(ctx context.Context, userID, gameType, difficulty, opponentID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	gameType = strings.TrimSpace(gameType)
	if userID == "" || gameType == "" {
		return nil, fmt.Errorf("user id and game type are required")
	}

	banned, err := m.cheat.IsUserBanned(ctx, userID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, ErrBanned
	}
	allowed, err := m.limiter.Allow(ctx, userID, ratelimit.ActionGameStart)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	token, err := crypt.NewToken(32)
	if err != nil {
		return nil, err
	}
	now := m.now()
	s := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		GameType:   gameType,
		Difficulty: strings.TrimSpace(difficulty),
		OpponentID: strings.TrimSpace(opponentID),
		Token:      token,
		State: GameState{
			Moves:      []MoveRecord{},
			GameType:   gameType,
			Difficulty: strings.TrimSpace(difficulty),
			OpponentID: strings.TrimSpace(opponentID),
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Checksum, err = Checksum(s.State, s.Token, m.secret)
	if err != nil {
		return nil, err
	}

	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	if err := m.indexOwner(ctx, s.ID, s.UserID); err != nil {
		return nil, err
	}
	obslog.L().Info("session_start",
		zap.String("session_id", s.ID),
		zap.String("user_id", s.UserID),
		zap.String("game_type", s.GameType),
		zap.String("difficulty", s.Difficulty),
		zap.String("opponent_id", s.OpponentID),
	)
	return s, nil
}

// Get loads a session by ID; nil when absent or expired.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := m.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ActiveByUser returns the user's most recently updated active session.
func (m *Manager) ActiveByUser(ctx context.Context, userID string) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var list []*Session
	for _, id := range ids {
		s, gerr := m.Get(ctx, id)
		if gerr == nil && s != nil && s.IsActive {
			list = append(list, s)
		}
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list[0], nil
}

// SubmitMove validates and commits one move under optimistic concurrency.
// The returned string is the fresh checksum over the accepted state. A
// rejected submission never advances session state; integrity rejections are
// logged as violations before the error is returned.
func (m *Manager) SubmitMove(ctx context.Context, userID, sessionID string, move MoveRecord, proposed GameState) (string, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if userID == "" || sessionID == "" {
		return "", fmt.Errorf("user id and session id are required")
	}

	key := sessionKey(sessionID)
	var newChecksum string
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		var cur Session
		if jerr := json.Unmarshal(raw, &cur); jerr != nil {
			return jerr
		}

		if cur.UserID != userID {
			return ErrUnauthorized
		}
		if !cur.IsActive {
			return ErrInactiveSession
		}

		// bot-speed check against the last accepted move
		if n := len(cur.State.Moves); n > 0 {
			gap := move.Timestamp - cur.State.Moves[n-1].Timestamp
			if gap < minMoveInterval.Milliseconds() {
				m.logViolation(ctx, &cur, anticheat.ViolationTiming,
					fmt.Sprintf("interval %dms between moves %d and %d", gap, n-1, n))
				return ErrTimingViolation
			}
		}

		// replay/rollback check: the proposed state must extend the
		// authoritative history by exactly this move
		if len(proposed.Moves) != len(cur.State.Moves)+1 {
			m.logViolation(ctx, &cur, anticheat.ViolationStateManipulation,
				fmt.Sprintf("expected %d moves, proposed %d", len(cur.State.Moves)+1, len(proposed.Moves)))
			return ErrHistoryMismatch
		}
		if last := proposed.Moves[len(proposed.Moves)-1]; last.Timestamp != move.Timestamp || last.Type != move.Type {
			m.logViolation(ctx, &cur, anticheat.ViolationStateManipulation,
				"proposed state does not end with the submitted move")
			return ErrHistoryMismatch
		}

		cur.State = proposed
		cur.UpdatedAt = m.now()
		cur.Checksum, err = Checksum(cur.State, cur.Token, m.secret)
		if err != nil {
			return err
		}

		pipe := tx.TxPipeline()
		newRaw, _ := json.Marshal(&cur)
		pipe.Set(ctx, key, newRaw, m.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		newChecksum = cur.Checksum
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// a concurrent submit won the race; nothing was applied
		return "", ErrConcurrentUpdate
	}
	if err != nil {
		return "", err
	}

	obslog.L().Info("session_move",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.String("move_type", move.Type),
		zap.Int("move_count", len(proposed.Moves)),
	)
	return newChecksum, nil
}

// VerifyIntegrity recomputes the digest for a claimed state/checksum pair.
// A mismatch is tampering: it is logged as a high-severity violation and
// returned as ErrChecksumMismatch, never silently corrected.
func (m *Manager) VerifyIntegrity(ctx context.Context, sessionID string, state GameState, checksum string) error {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrSessionNotFound
	}
	expected, err := Checksum(state, s.Token, m.secret)
	if err != nil {
		return err
	}
	if expected != checksum {
		m.logViolation(ctx, s, anticheat.ViolationStateManipulation, "checksum mismatch")
		return ErrChecksumMismatch
	}
	return nil
}

// End marks the session inactive and resolves its outcome. Decisive PvP
// results advance both participants on the mastery ladder; draws and
// single-player games touch no ranks. Ending an already-ended session is
// ErrInactiveSession, so in-flight work for a dead session stays a no-op.
func (m *Manager) End(ctx context.Context, userID, sessionID string, result Result) (*Session, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if !result.valid() {
		return nil, ErrInvalidResult
	}

	key := sessionKey(sessionID)
	var ended *Session
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		var cur Session
		if jerr := json.Unmarshal(raw, &cur); jerr != nil {
			return jerr
		}
		if cur.UserID != userID {
			return ErrUnauthorized
		}
		if !cur.IsActive {
			return ErrInactiveSession
		}

		cur.IsActive = false
		cur.Result = result
		cur.UpdatedAt = m.now()

		pipe := tx.TxPipeline()
		newRaw, _ := json.Marshal(&cur)
		pipe.Set(ctx, key, newRaw, m.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		ended = &cur
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrConcurrentUpdate
	}
	if err != nil {
		return nil, err
	}

	obslog.L().Info("session_end",
		zap.String("session_id", ended.ID),
		zap.String("user_id", ended.UserID),
		zap.String("result", string(result)),
		zap.Int("move_count", ended.MoveCount()),
	)

	if ended.OpponentID != "" && result != ResultDraw {
		winner, loser := ended.UserID, ended.OpponentID
		if result == ResultLoss {
			winner, loser = ended.OpponentID, ended.UserID
		}
		if _, _, rerr := m.ranks.ApplyResult(ctx, winner, loser); rerr != nil {
			obslog.L().Error("mastery_update_error",
				zap.String("session_id", ended.ID),
				zap.String("winner", winner),
				zap.String("loser", loser),
				zap.Error(rerr),
			)
			return nil, rerr
		}
		obslog.L().Info("mastery_updated",
			zap.String("session_id", ended.ID),
			zap.String("winner", winner),
			zap.String("loser", loser),
		)
	}

	if m.archive != nil {
		if aerr := m.archive.SaveArchive(ctx, ended); aerr != nil {
			obslog.L().Error("session_archive_error",
				zap.String("session_id", ended.ID),
				zap.Error(aerr),
			)
		}
	}
	return ended, nil
}

// History returns the user's archived sessions, newest first. Without an
// attached archive there is no durable record, so the list is empty.
func (m *Manager) History(ctx context.Context, userID string, limit int) ([]domain.SessionArchive, error) {
	if m.archive == nil {
		return nil, nil
	}
	return m.archive.History(ctx, strings.TrimSpace(userID), limit)
}

// IsUserBanned is the boundary passthrough for the banned-page check.
func (m *Manager) IsUserBanned(ctx context.Context, userID string) (bool, error) {
	return m.cheat.IsUserBanned(ctx, userID)
}

// logViolation records the violation; the escalation outcome does not change
// the submit path's error, so failures here are logged and swallowed.
func (m *Manager) logViolation(ctx context.Context, s *Session, vtype, details string) {
	if err := m.cheat.LogViolation(ctx, s.UserID, s.ID, vtype, details); err != nil {
		obslog.L().Error("violation_log_error",
			zap.String("session_id", s.ID),
			zap.String("violation_type", vtype),
			zap.Error(err),
		)
	}
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, sessionKey(s.ID), raw, m.ttl).Err()
}

func (m *Manager) indexOwner(ctx context.Context, sessionID, userID string) error {
	key := userIndexKey(userID)
	if err := m.rdb.SAdd(ctx, key, sessionID).Err(); err != nil {
		return err
	}
	// keep the index TTL in step with the sessions it points at
	return m.rdb.Expire(ctx, key, m.ttl).Err()
}

// WithClock overrides the time source. Test hook.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func sessionKey(id string) string { return "sess:" + strings.TrimSpace(id) }

func userIndexKey(userID string) string { return "sess:index:user:" + strings.TrimSpace(userID) }
