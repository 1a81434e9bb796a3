package ai

import (
	"github.com/playforge/tabletop-server/internal/board"
)

// Material values in pawns. The king's value never enters normal scoring:
// king capture ends the game through the terminal check before the evaluator
// would ever price it.
var pieceValues = map[board.PieceType]float64{
	board.Pawn:   1,
	board.Knight: 3,
	board.Bishop: 3,
	board.Rook:   5,
	board.Queen:  9,
	board.King:   100,
}

const (
	captureWeight      = 10
	centerWeight       = 0.5
	earlyKingPenalty   = 5
	developmentBonus   = 2
)

// ScoreMove rates mv for the given mover. Higher is better. The move is
// simulated on a clone; the input board is never mutated.
func ScoreMove(b *board.Board, mv board.Move, color board.Color) float64 {
	sim := b.Clone()
	moving := sim.At(mv.From)
	captured := sim.Apply(mv)

	score := 0.0
	if !captured.IsEmpty() {
		score += pieceValues[captured.Type] * captureWeight
	}

	// center control scales with closeness of the destination to the middle
	center := float64(b.Size()-1) / 2
	centerDistance := absFloat(float64(mv.To.Row)-center) + absFloat(float64(mv.To.Col)-center)
	score += (float64(b.Size()-1) - centerDistance) * centerWeight

	if moving.Type == board.King && mv.From.Row == board.HomeRank(b, color) {
		score -= earlyKingPenalty
	}
	if moving.Type == board.Knight || moving.Type == board.Bishop {
		score += developmentBonus
	}
	return score
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
