package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"

	"github.com/playforge/tabletop-server/internal/anticheat"
	"github.com/playforge/tabletop-server/internal/mastery"
	"github.com/playforge/tabletop-server/internal/matchmaking"
	"github.com/playforge/tabletop-server/internal/ratelimit"
	"github.com/playforge/tabletop-server/internal/session"
	"github.com/playforge/tabletop-server/pkg/gamedto"
)

type serverEnv struct {
	srv   *Server
	cheat *anticheat.Service
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cheat := anticheat.NewService(anticheat.NewMemoryRepository())
	ranks := mastery.NewMemoryStore()
	limiter := ratelimit.NewLimiter(rdb, ratelimit.DefaultPolicies())

	mgr, err := session.NewManager(rdb, limiter, cheat, ranks, "test-secret")
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	mgr.AttachArchive(session.NewMemoryArchive())
	queue, err := matchmaking.NewQueue(rdb, limiter, cheat, ranks)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	return &serverEnv{srv: NewServer(mgr, queue, ranks), cheat: cheat}
}

func (e *serverEnv) do(t *testing.T, method, path, userID string, body any) *fasthttp.RequestCtx {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Init(&fasthttp.Request{}, nil, nil)
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if userID != "" {
		ctx.Request.Header.Set("X-User-Id", userID)
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		ctx.Request.SetBody(raw)
	}
	e.srv.Handler(&ctx)
	return &ctx
}

func decodeBody[T any](t *testing.T, ctx *fasthttp.RequestCtx) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(ctx.Response.Body(), &out); err != nil {
		t.Fatalf("decode response %q: %v", ctx.Response.Body(), err)
	}
	return out
}

func TestHandlerRequiresIdentity(t *testing.T) {
	env := newServerEnv(t)
	ctx := env.do(t, fasthttp.MethodPost, "/v1/sessions", "", gamedto.StartSessionRequest{GameType: "chess"})
	if ctx.Response.StatusCode() != fasthttp.StatusUnauthorized {
		t.Fatalf("want 401 without X-User-Id, got %d", ctx.Response.StatusCode())
	}
}

func TestSessionRoundTrip(t *testing.T) {
	env := newServerEnv(t)

	start := env.do(t, fasthttp.MethodPost, "/v1/sessions", "alice",
		gamedto.StartSessionRequest{GameType: "chess", Difficulty: "medium"})
	if start.Response.StatusCode() != fasthttp.StatusCreated {
		t.Fatalf("start: status %d body %s", start.Response.StatusCode(), start.Response.Body())
	}
	created := decodeBody[gamedto.StartSessionResponse](t, start)
	if created.Session == nil || created.Session.ID == "" || created.Session.Token == "" {
		t.Fatalf("incomplete session view: %+v", created.Session)
	}

	state := session.GameState{
		Moves:      []session.MoveRecord{{Type: "chess_move", Timestamp: time.Now().UnixMilli()}},
		GameType:   "chess",
		Difficulty: "medium",
	}
	rawState, _ := json.Marshal(state)
	move := env.do(t, fasthttp.MethodPost, "/v1/sessions/move", "alice", gamedto.MoveRequest{
		SessionID: created.Session.ID,
		Move:      gamedto.MoveView{Type: "chess_move", Timestamp: state.Moves[0].Timestamp},
		GameState: rawState,
	})
	if move.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("move: status %d body %s", move.Response.StatusCode(), move.Response.Body())
	}
	moved := decodeBody[gamedto.MoveResponse](t, move)
	if moved.Checksum == "" || moved.Checksum == created.Session.Checksum {
		t.Fatalf("checksum not refreshed: %+v", moved)
	}

	end := env.do(t, fasthttp.MethodPost, "/v1/sessions/end", "alice",
		gamedto.EndSessionRequest{SessionID: created.Session.ID, Result: "win"})
	if end.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("end: status %d body %s", end.Response.StatusCode(), end.Response.Body())
	}
	ended := decodeBody[gamedto.EndSessionResponse](t, end)
	if ended.Session.IsActive || ended.Session.Result != "win" {
		t.Fatalf("session not finalized: %+v", ended.Session)
	}

	history := env.do(t, fasthttp.MethodGet, "/v1/sessions/history", "alice", nil)
	if history.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("history: status %d body %s", history.Response.StatusCode(), history.Response.Body())
	}
	archived := decodeBody[gamedto.HistoryResponse](t, history)
	if len(archived.Sessions) != 1 {
		t.Fatalf("want 1 archived session, got %+v", archived.Sessions)
	}
	row := archived.Sessions[0]
	if row.SessionID != created.Session.ID || row.Result != "win" || row.MoveCount != 1 {
		t.Fatalf("archived row wrong: %+v", row)
	}

	// history is scoped to the caller
	other := env.do(t, fasthttp.MethodGet, "/v1/sessions/history", "bob", nil)
	if got := decodeBody[gamedto.HistoryResponse](t, other); len(got.Sessions) != 0 {
		t.Fatalf("history leaked across users: %+v", got.Sessions)
	}
}

func TestMoveMismatchMapsToConflict(t *testing.T) {
	env := newServerEnv(t)

	start := env.do(t, fasthttp.MethodPost, "/v1/sessions", "alice",
		gamedto.StartSessionRequest{GameType: "chess"})
	created := decodeBody[gamedto.StartSessionResponse](t, start)

	// empty proposed history cannot contain the submitted move
	rawState, _ := json.Marshal(session.GameState{GameType: "chess", Moves: []session.MoveRecord{}})
	move := env.do(t, fasthttp.MethodPost, "/v1/sessions/move", "alice", gamedto.MoveRequest{
		SessionID: created.Session.ID,
		Move:      gamedto.MoveView{Type: "chess_move", Timestamp: time.Now().UnixMilli()},
		GameState: rawState,
	})
	if move.Response.StatusCode() != fasthttp.StatusConflict {
		t.Fatalf("want 409 for history mismatch, got %d", move.Response.StatusCode())
	}
	derr := decodeBody[gamedto.DomainError](t, move)
	if derr.Code != "integrity_violation" {
		t.Fatalf("want integrity_violation code, got %+v", derr)
	}
}

func TestBannedUserMappings(t *testing.T) {
	env := newServerEnv(t)
	ctxBg := context.Background()
	if err := env.cheat.Ban(ctxBg, "cheater", "test", time.Now().Add(time.Hour), false); err != nil {
		t.Fatalf("ban: %v", err)
	}

	check := env.do(t, fasthttp.MethodGet, "/v1/bans/check", "cheater", nil)
	if got := decodeBody[gamedto.BanCheckResponse](t, check); !got.Banned {
		t.Fatalf("ban check should report banned: %+v", got)
	}

	start := env.do(t, fasthttp.MethodPost, "/v1/sessions", "cheater",
		gamedto.StartSessionRequest{GameType: "chess"})
	if start.Response.StatusCode() != fasthttp.StatusForbidden {
		t.Fatalf("want 403 for banned start, got %d", start.Response.StatusCode())
	}

	// the rejected start must leave no session behind
	active := env.do(t, fasthttp.MethodGet, "/v1/sessions/active", "cheater", nil)
	if active.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("banned start created a session: status %d body %s",
			active.Response.StatusCode(), active.Response.Body())
	}

	join := env.do(t, fasthttp.MethodPost, "/v1/matchmaking/join", "cheater",
		gamedto.MatchmakingRequest{GameType: "chess"})
	if join.Response.StatusCode() != fasthttp.StatusForbidden {
		t.Fatalf("want 403 for banned join, got %d", join.Response.StatusCode())
	}
}

func TestMatchmakingFlow(t *testing.T) {
	env := newServerEnv(t)

	for _, user := range []string{"alice", "bob"} {
		join := env.do(t, fasthttp.MethodPost, "/v1/matchmaking/join", user,
			gamedto.MatchmakingRequest{GameType: "chess"})
		if join.Response.StatusCode() != fasthttp.StatusNoContent {
			t.Fatalf("join %s: status %d", user, join.Response.StatusCode())
		}
	}

	find := env.do(t, fasthttp.MethodPost, "/v1/matchmaking/find", "bob",
		gamedto.MatchmakingRequest{GameType: "chess"})
	if find.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("find: status %d body %s", find.Response.StatusCode(), find.Response.Body())
	}
	m := decodeBody[gamedto.MatchResponse](t, find)
	if m.MatchID == "" || m.Player1 != "alice" || m.Player2 != "bob" {
		t.Fatalf("unexpected pairing: %+v", m)
	}

	again := env.do(t, fasthttp.MethodPost, "/v1/matchmaking/find", "bob",
		gamedto.MatchmakingRequest{GameType: "chess"})
	if again.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("want 404 after leaving the queue, got %d", again.Response.StatusCode())
	}
}

func TestRankEndpoint(t *testing.T) {
	env := newServerEnv(t)

	resp := env.do(t, fasthttp.MethodGet, "/v1/mastery/rank", "alice", nil)
	if resp.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("rank: status %d body %s", resp.Response.StatusCode(), resp.Response.Body())
	}
	rank := decodeBody[gamedto.RankResponse](t, resp)
	if rank.Level != 1 || rank.SubRank != 1 || rank.Fragments != 0 {
		t.Fatalf("fresh user should start at the ladder floor: %+v", rank)
	}
	if rank.Display != "Novice — Basic" {
		t.Fatalf("unexpected display name: %q", rank.Display)
	}
}

func TestAIMoveEndpoint(t *testing.T) {
	env := newServerEnv(t)

	grid := make([][]gamedto.PieceView, 8)
	for i := range grid {
		grid[i] = make([]gamedto.PieceView, 8)
	}
	back := []string{"rook", "knight", "bishop", "queen", "king", "bishop", "knight", "rook"}
	for col, typ := range back {
		grid[0][col] = gamedto.PieceView{Type: typ, Color: "black"}
		grid[7][col] = gamedto.PieceView{Type: typ, Color: "white"}
	}
	for col := 0; col < 8; col++ {
		grid[1][col] = gamedto.PieceView{Type: "pawn", Color: "black"}
		grid[6][col] = gamedto.PieceView{Type: "pawn", Color: "white"}
	}

	resp := env.do(t, fasthttp.MethodPost, "/v1/ai/move", "alice", gamedto.AIMoveRequest{
		Board:      grid,
		Color:      "white",
		Difficulty: "easy",
	})
	if resp.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("ai move: status %d body %s", resp.Response.StatusCode(), resp.Response.Body())
	}
	got := decodeBody[gamedto.AIMoveResponse](t, resp)
	if got.GameOver || got.Move == nil {
		t.Fatalf("opening position should produce a move: %+v", got)
	}
	if got.Move.From.Row < 0 || got.Move.From.Row > 7 || got.Move.To.Row < 0 || got.Move.To.Row > 7 {
		t.Fatalf("move out of bounds: %+v", got.Move)
	}

	bad := env.do(t, fasthttp.MethodPost, "/v1/ai/move", "alice", gamedto.AIMoveRequest{
		Board: grid,
		Color: "purple",
	})
	if bad.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("want 400 for unknown color, got %d", bad.Response.StatusCode())
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newServerEnv(t)
	resp := env.do(t, fasthttp.MethodGet, "/v1/nope", "alice", nil)
	if resp.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("want 404, got %d", resp.Response.StatusCode())
	}
	var derr gamedto.DomainError
	if err := json.Unmarshal(resp.Response.Body(), &derr); err != nil {
		t.Fatalf("error body: %v", err)
	}
	if derr.Code != "not_found" {
		t.Fatalf("want not_found code, got %s", fmt.Sprintf("%+v", derr))
	}
}
