package ai

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/playforge/tabletop-server/internal/board"
	"github.com/playforge/tabletop-server/internal/obslog"
)

// ChooseMove produces the opponent's move for one turn.
//
// ok is false iff the color has no legal move; the caller decides the
// game-over semantics for that case. The thinking delay is cancellable: when
// ctx is done mid-think (session ended, player resigned) the selection is
// abandoned and ctx.Err() is returned.
//
// The rng is owned by the calling session, not this package, so concurrent
// sessions never share hidden selection state.
func ChooseMove(ctx context.Context, b *board.Board, color board.Color, p Profile, rng *rand.Rand) (mv board.Move, ok bool, err error) {
	if verr := ValidateProfile(p); verr != nil {
		return board.Move{}, false, verr
	}
	// a dead session must never receive a move, even with a zero think delay
	if cerr := ctx.Err(); cerr != nil {
		return board.Move{}, false, cerr
	}

	moves := board.LegalMoves(b, color)
	if len(moves) == 0 {
		return board.Move{}, false, nil
	}

	if p.ThinkingTime > 0 {
		timer := time.NewTimer(p.ThinkingTime)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return board.Move{}, false, ctx.Err()
		case <-timer.C:
		}
	}

	if rng.Float64() < p.ErrorRate {
		pick := moves[rng.Intn(len(moves))]
		obslog.L().Debug("ai_move_random",
			zap.String("level", p.Level),
			zap.Int("candidates", len(moves)),
		)
		return pick, true, nil
	}

	best := moves[0]
	bestScore := ScoreMove(b, best, color)
	// ties keep the first-encountered move; generation order is
	// deterministic, so so is the choice
	for _, cand := range moves[1:] {
		if s := ScoreMove(b, cand, color); s > bestScore {
			best, bestScore = cand, s
		}
	}
	obslog.L().Debug("ai_move_best",
		zap.String("level", p.Level),
		zap.Int("candidates", len(moves)),
		zap.Float64("score", bestScore),
	)
	return best, true, nil
}
