// Package httpapi is the fasthttp boundary over the game services. Identity
// arrives as an X-User-Id header from the auth layer in front of this
// process; requests without it are rejected.
package httpapi

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/playforge/tabletop-server/internal/ai"
	"github.com/playforge/tabletop-server/internal/mastery"
	"github.com/playforge/tabletop-server/internal/matchmaking"
	"github.com/playforge/tabletop-server/internal/obslog"
	"github.com/playforge/tabletop-server/internal/session"
	"github.com/playforge/tabletop-server/pkg/gamedto"
)

const headerUserID = "X-User-Id"

type Server struct {
	sessions *session.Manager
	queue    *matchmaking.Queue
	ranks    mastery.Store

	defaultDifficulty string

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewServer(sessions *session.Manager, queue *matchmaking.Queue, ranks mastery.Store) *Server {
	return &Server{
		sessions: sessions,
		queue:    queue,
		ranks:    ranks,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),

		defaultDifficulty: ai.DefaultLevel,
	}
}

// WithDefaultDifficulty sets the difficulty applied when requests omit one.
func (s *Server) WithDefaultDifficulty(level string) *Server {
	if strings.TrimSpace(level) != "" {
		s.defaultDifficulty = strings.TrimSpace(level)
	}
	return s
}

// Handler is the fasthttp request entry point.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	userID := strings.TrimSpace(string(ctx.Request.Header.Peek(headerUserID)))
	if userID == "" {
		writeError(ctx, fasthttp.StatusUnauthorized, "unauthenticated", "X-User-Id header is required", false)
		return
	}

	switch {
	case method == fasthttp.MethodPost && path == "/v1/sessions":
		s.handleStartSession(ctx, userID)
	case method == fasthttp.MethodPost && path == "/v1/sessions/move":
		s.handleMove(ctx, userID)
	case method == fasthttp.MethodPost && path == "/v1/sessions/end":
		s.handleEndSession(ctx, userID)
	case method == fasthttp.MethodGet && path == "/v1/sessions/active":
		s.handleActiveSession(ctx, userID)
	case method == fasthttp.MethodGet && path == "/v1/sessions/history":
		s.handleHistory(ctx, userID)
	case method == fasthttp.MethodGet && path == "/v1/bans/check":
		s.handleBanCheck(ctx, userID)
	case method == fasthttp.MethodPost && path == "/v1/matchmaking/join":
		s.handleMatchmakingJoin(ctx, userID)
	case method == fasthttp.MethodPost && path == "/v1/matchmaking/leave":
		s.handleMatchmakingLeave(ctx, userID)
	case method == fasthttp.MethodPost && path == "/v1/matchmaking/find":
		s.handleMatchmakingFind(ctx, userID)
	case method == fasthttp.MethodGet && path == "/v1/mastery/rank":
		s.handleRank(ctx, userID)
	case method == fasthttp.MethodPost && path == "/v1/ai/move":
		s.handleAIMove(ctx, userID)
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not_found", "unknown route", false)
	}
}

func (s *Server) handleStartSession(ctx *fasthttp.RequestCtx, userID string) {
	var req gamedto.StartSessionRequest
	if !decode(ctx, &req) {
		return
	}
	difficulty := req.Difficulty
	if strings.TrimSpace(difficulty) == "" && strings.TrimSpace(req.OpponentID) == "" {
		difficulty = s.defaultDifficulty
	}
	sess, err := s.sessions.Start(ctx, userID, req.GameType, difficulty, req.OpponentID)
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, gamedto.StartSessionResponse{Session: sessionView(sess)})
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx, userID string) {
	var req gamedto.MoveRequest
	if !decode(ctx, &req) {
		return
	}
	var proposed session.GameState
	if err := json.Unmarshal(req.GameState, &proposed); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "malformed gameState", false)
		return
	}
	mv := session.MoveRecord{Type: req.Move.Type, Data: req.Move.Data, Timestamp: req.Move.Timestamp}
	sum, err := s.sessions.SubmitMove(ctx, userID, req.SessionID, mv, proposed)
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, gamedto.MoveResponse{Checksum: sum})
}

func (s *Server) handleEndSession(ctx *fasthttp.RequestCtx, userID string) {
	var req gamedto.EndSessionRequest
	if !decode(ctx, &req) {
		return
	}
	sess, err := s.sessions.End(ctx, userID, req.SessionID, session.Result(req.Result))
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, gamedto.EndSessionResponse{Session: sessionView(sess)})
}

func (s *Server) handleActiveSession(ctx *fasthttp.RequestCtx, userID string) {
	sess, err := s.sessions.ActiveByUser(ctx, userID)
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	if sess == nil {
		writeError(ctx, fasthttp.StatusNotFound, "no_active_session", "no active session for user", false)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, gamedto.StartSessionResponse{Session: sessionView(sess)})
}

func (s *Server) handleHistory(ctx *fasthttp.RequestCtx, userID string) {
	limit := ctx.QueryArgs().GetUintOrZero("limit")
	records, err := s.sessions.History(ctx, userID, limit)
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	views := make([]gamedto.ArchivedSessionView, 0, len(records))
	for _, a := range records {
		views = append(views, gamedto.ArchivedSessionView{
			SessionID:  a.SessionID,
			GameType:   a.GameType,
			Difficulty: a.Difficulty,
			OpponentID: a.OpponentID,
			Result:     a.Result,
			MoveCount:  a.MoveCount,
			StartedAt:  a.StartedAt,
			EndedAt:    a.EndedAt,
			DurationMS: a.Duration.Milliseconds(),
		})
	}
	writeJSON(ctx, fasthttp.StatusOK, gamedto.HistoryResponse{Sessions: views})
}

func (s *Server) handleBanCheck(ctx *fasthttp.RequestCtx, userID string) {
	banned, err := s.sessions.IsUserBanned(ctx, userID)
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, gamedto.BanCheckResponse{Banned: banned})
}

func (s *Server) handleMatchmakingJoin(ctx *fasthttp.RequestCtx, userID string) {
	var req gamedto.MatchmakingRequest
	if !decode(ctx, &req) {
		return
	}
	if err := s.queue.Join(ctx, userID, req.GameType); err != nil {
		writeMatchmakingError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleMatchmakingLeave(ctx *fasthttp.RequestCtx, userID string) {
	var req gamedto.MatchmakingRequest
	if !decode(ctx, &req) {
		return
	}
	if err := s.queue.Leave(ctx, userID, req.GameType); err != nil {
		writeMatchmakingError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleMatchmakingFind(ctx *fasthttp.RequestCtx, userID string) {
	var req gamedto.MatchmakingRequest
	if !decode(ctx, &req) {
		return
	}
	m, err := s.queue.FindMatch(ctx, userID, req.GameType)
	if err != nil {
		writeMatchmakingError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, gamedto.MatchResponse{
		MatchID:  m.ID,
		GameType: m.GameType,
		Player1:  m.Player1,
		Player2:  m.Player2,
	})
}

func (s *Server) handleRank(ctx *fasthttp.RequestCtx, userID string) {
	profile, err := s.ranks.EnsureProfile(ctx, userID)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "internal", "rank lookup failed", true)
		return
	}
	lang := strings.TrimSpace(string(ctx.QueryArgs().Peek("lang")))
	display, err := mastery.Display(profile.Rank, lang)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "internal", "rank catalog lookup failed", false)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, gamedto.RankResponse{
		Level:     profile.Rank.Level,
		SubRank:   profile.Rank.SubRank,
		Fragments: profile.Rank.Fragments,
		Display:   display,
		Wins:      profile.TotalWins,
		Losses:    profile.TotalLosses,
		Streak:    profile.CurrentStreak,
	})
}

func (s *Server) handleAIMove(ctx *fasthttp.RequestCtx, userID string) {
	var req gamedto.AIMoveRequest
	if !decode(ctx, &req) {
		return
	}
	b, err := boardFromView(req.Board)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_request", err.Error(), false)
		return
	}
	color, err := colorFromView(req.Color)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_request", err.Error(), false)
		return
	}
	difficulty := req.Difficulty
	if strings.TrimSpace(difficulty) == "" {
		difficulty = s.defaultDifficulty
	}
	profile, err := ai.ProfileFor(difficulty)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_request", err.Error(), false)
		return
	}

	// per-request rng so the shared source is never held across the
	// thinking delay
	s.rngMu.Lock()
	seed := s.rng.Int63()
	s.rngMu.Unlock()
	mv, ok, err := ai.ChooseMove(ctx, b, color, profile, rand.New(rand.NewSource(seed)))
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "internal", "move selection failed", true)
		return
	}
	if !ok {
		writeJSON(ctx, fasthttp.StatusOK, gamedto.AIMoveResponse{GameOver: true})
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, gamedto.AIMoveResponse{
		Move: &gamedto.MoveCoords{
			From: gamedto.SquareView{Row: mv.From.Row, Col: mv.From.Col},
			To:   gamedto.SquareView{Row: mv.To.Row, Col: mv.To.Col},
		},
	})
}

func sessionView(s *session.Session) *gamedto.SessionView {
	return &gamedto.SessionView{
		ID:         s.ID,
		UserID:     s.UserID,
		GameType:   s.GameType,
		Difficulty: s.Difficulty,
		OpponentID: s.OpponentID,
		Token:      s.Token,
		Checksum:   s.Checksum,
		IsActive:   s.IsActive,
		Result:     string(s.Result),
		MoveCount:  s.MoveCount(),
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func decode(ctx *fasthttp.RequestCtx, out any) bool {
	if err := json.Unmarshal(ctx.PostBody(), out); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "malformed JSON body", false)
		return false
	}
	return true
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		obslog.L().Error("response_marshal_error", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}

func writeError(ctx *fasthttp.RequestCtx, status int, code, message string, retryable bool) {
	writeJSON(ctx, status, gamedto.DomainError{Code: code, Message: message, Retryable: retryable})
}

func writeSessionError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, session.ErrUnauthorized):
		writeError(ctx, fasthttp.StatusUnauthorized, "unauthorized", "session belongs to another user", false)
	case errors.Is(err, session.ErrBanned):
		writeError(ctx, fasthttp.StatusForbidden, "banned", "user is banned", false)
	case errors.Is(err, session.ErrRateLimited):
		writeError(ctx, fasthttp.StatusTooManyRequests, "rate_limited", "rate limit exceeded", true)
	case errors.Is(err, session.ErrTimingViolation),
		errors.Is(err, session.ErrHistoryMismatch),
		errors.Is(err, session.ErrChecksumMismatch):
		writeError(ctx, fasthttp.StatusConflict, "integrity_violation", err.Error(), false)
	case errors.Is(err, session.ErrConcurrentUpdate):
		writeError(ctx, fasthttp.StatusConflict, "concurrent_update", "session changed concurrently", true)
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(ctx, fasthttp.StatusNotFound, "session_not_found", "session does not exist", false)
	case errors.Is(err, session.ErrInactiveSession), errors.Is(err, session.ErrInvalidResult):
		writeError(ctx, fasthttp.StatusBadRequest, "bad_request", err.Error(), false)
	default:
		obslog.L().Error("session_handler_error", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "internal", "internal error", true)
	}
}

func writeMatchmakingError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, matchmaking.ErrBanned):
		writeError(ctx, fasthttp.StatusForbidden, "banned", "user is banned", false)
	case errors.Is(err, matchmaking.ErrRateLimited):
		writeError(ctx, fasthttp.StatusTooManyRequests, "rate_limited", "rate limit exceeded", true)
	case errors.Is(err, matchmaking.ErrNotQueued):
		writeError(ctx, fasthttp.StatusNotFound, "not_queued", "user is not in the queue", false)
	case errors.Is(err, matchmaking.ErrNoOpponent):
		writeError(ctx, fasthttp.StatusNotFound, "no_opponent", "no compatible opponent queued", true)
	default:
		obslog.L().Error("matchmaking_handler_error", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "internal", "internal error", true)
	}
}
