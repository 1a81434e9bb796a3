package ai

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/playforge/tabletop-server/internal/board"
)

func instantProfile(errorRate float64) Profile {
	return Profile{Level: "test", ThinkingTime: 0, ErrorRate: errorRate, LookAheadDepth: 1}
}

func TestChooseMoveNoLegalMoves(t *testing.T) {
	b := board.New(8)
	// lone white king boxed into the corner by its own pieces
	b.Put(board.Square{Row: 7, Col: 7}, board.Piece{Type: board.King, Color: board.White})
	b.Put(board.Square{Row: 7, Col: 6}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 6, Col: 6}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 6, Col: 7}, board.Piece{Type: board.Pawn, Color: board.White})
	// the blocking pawns themselves must be stuck too
	b.Put(board.Square{Row: 5, Col: 6}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 5, Col: 7}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 4, Col: 6}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 4, Col: 7}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 3, Col: 6}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 3, Col: 7}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 2, Col: 6}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 2, Col: 7}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 1, Col: 6}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 1, Col: 7}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 0, Col: 6}, board.Piece{Type: board.Pawn, Color: board.White})
	b.Put(board.Square{Row: 0, Col: 7}, board.Piece{Type: board.Pawn, Color: board.White})

	if got := board.LegalMoves(b, board.White); len(got) != 0 {
		t.Fatalf("fixture expected no legal moves, got %d: %+v", len(got), got[0])
	}

	rng := rand.New(rand.NewSource(1))
	_, ok, err := ChooseMove(context.Background(), b, board.White, instantProfile(0), rng)
	if err != nil {
		t.Fatalf("ChooseMove: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false when no legal moves exist")
	}
}

func TestChooseMoveReturnsLegalMove(t *testing.T) {
	b := board.NewChess()
	rng := rand.New(rand.NewSource(7))
	mv, ok, err := ChooseMove(context.Background(), b, board.Black, instantProfile(1.0), rng)
	if err != nil || !ok {
		t.Fatalf("ChooseMove: ok=%v err=%v", ok, err)
	}
	if !board.IsLegal(b, mv.From, mv.To) {
		t.Fatalf("random branch returned an illegal move: %+v", mv)
	}
}

func TestChooseMoveDeterministicBestWithZeroErrorRate(t *testing.T) {
	// white queen can capture the black queen; capture value dominates
	b := board.New(8)
	b.Put(board.Square{Row: 7, Col: 4}, board.Piece{Type: board.King, Color: board.White})
	b.Put(board.Square{Row: 4, Col: 4}, board.Piece{Type: board.Queen, Color: board.White})
	b.Put(board.Square{Row: 4, Col: 7}, board.Piece{Type: board.Queen, Color: board.Black})
	b.Put(board.Square{Row: 0, Col: 1}, board.Piece{Type: board.King, Color: board.Black})

	want := board.Move{From: board.Square{Row: 4, Col: 4}, To: board.Square{Row: 4, Col: 7}}
	for seed := int64(0); seed < 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		mv, ok, err := ChooseMove(context.Background(), b, board.White, instantProfile(0), rng)
		if err != nil || !ok {
			t.Fatalf("ChooseMove: ok=%v err=%v", ok, err)
		}
		if mv != want {
			t.Fatalf("seed %d: expected queen capture %+v, got %+v", seed, want, mv)
		}
	}
}

func TestChooseMoveCancelledWhileThinking(t *testing.T) {
	b := board.NewChess()
	p := Profile{Level: "test", ThinkingTime: 5 * time.Second, ErrorRate: 0, LookAheadDepth: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := ChooseMove(ctx, b, board.White, p, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatalf("expected context error when cancelled mid-think")
	}
}

func TestChooseMoveCancelledBeforeThinking(t *testing.T) {
	// zero think delay must still honor an already-dead context
	b := board.NewChess()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := ChooseMove(ctx, b, board.White, instantProfile(0), rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatalf("expected context error for a cancelled context")
	}
	if ok {
		t.Fatalf("cancelled selection must not report a move")
	}
}

func TestScoreMoveDoesNotMutateBoard(t *testing.T) {
	b := board.NewChess()
	before := board.LegalMoves(b, board.White)
	_ = ScoreMove(b, before[0], board.White)
	after := board.LegalMoves(b, board.White)
	if len(before) != len(after) {
		t.Fatalf("board changed during evaluation: %d vs %d moves", len(before), len(after))
	}
}

func TestEvaluatorPrefersBiggerCapture(t *testing.T) {
	b := board.New(8)
	b.Put(board.Square{Row: 4, Col: 4}, board.Piece{Type: board.Rook, Color: board.White})
	b.Put(board.Square{Row: 4, Col: 0}, board.Piece{Type: board.Queen, Color: board.Black})
	b.Put(board.Square{Row: 0, Col: 4}, board.Piece{Type: board.Pawn, Color: board.Black})

	takeQueen := board.Move{From: board.Square{Row: 4, Col: 4}, To: board.Square{Row: 4, Col: 0}}
	takePawn := board.Move{From: board.Square{Row: 4, Col: 4}, To: board.Square{Row: 0, Col: 4}}
	if ScoreMove(b, takeQueen, board.White) <= ScoreMove(b, takePawn, board.White) {
		t.Fatalf("queen capture should outscore pawn capture")
	}
}

func TestProfileForKnownLevels(t *testing.T) {
	for _, lvl := range Levels() {
		p, err := ProfileFor(lvl)
		if err != nil {
			t.Fatalf("ProfileFor(%s): %v", lvl, err)
		}
		if err := ValidateProfile(p); err != nil {
			t.Fatalf("preset %s invalid: %v", lvl, err)
		}
	}
	if _, err := ProfileFor("nightmare"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	p, err := ProfileFor("")
	if err != nil || p.Level != DefaultLevel {
		t.Fatalf("empty level should resolve to default, got %+v err=%v", p, err)
	}
}
