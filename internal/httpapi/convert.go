package httpapi

import (
	"fmt"
	"strings"

	"github.com/playforge/tabletop-server/internal/board"
	"github.com/playforge/tabletop-server/pkg/gamedto"
)

func colorFromView(s string) (board.Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white":
		return board.White, nil
	case "black":
		return board.Black, nil
	default:
		return 0, fmt.Errorf("unknown color %q", s)
	}
}

func pieceFromView(v gamedto.PieceView) (board.Piece, error) {
	if strings.TrimSpace(v.Type) == "" {
		return board.Piece{}, nil
	}
	var pt board.PieceType
	switch strings.ToLower(strings.TrimSpace(v.Type)) {
	case "pawn":
		pt = board.Pawn
	case "knight":
		pt = board.Knight
	case "bishop":
		pt = board.Bishop
	case "rook":
		pt = board.Rook
	case "queen":
		pt = board.Queen
	case "king":
		pt = board.King
	default:
		return board.Piece{}, fmt.Errorf("unknown piece type %q", v.Type)
	}
	c, err := colorFromView(v.Color)
	if err != nil {
		return board.Piece{}, err
	}
	return board.Piece{Type: pt, Color: c}, nil
}

func boardFromView(grid [][]gamedto.PieceView) (*board.Board, error) {
	size := len(grid)
	if size == 0 {
		return nil, fmt.Errorf("empty board")
	}
	b := board.New(size)
	for row, cells := range grid {
		if len(cells) != size {
			return nil, fmt.Errorf("row %d has %d cells, want %d", row, len(cells), size)
		}
		for col, cell := range cells {
			p, err := pieceFromView(cell)
			if err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", row, col, err)
			}
			if !p.IsEmpty() {
				b.Put(board.Square{Row: row, Col: col}, p)
			}
		}
	}
	return b, nil
}
