// Package board holds the grid model and move legality rules shared by the
// turn-based games. Chess is the fully specified instance; the other games
// reuse the same Board/Move shapes with their own setup.
package board

// Color identifies the side a piece belongs to. White is the first mover.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

type PieceType uint8

const (
	NoPiece PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

func (t PieceType) String() string {
	switch t {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// Piece occupies a single cell. The zero value is an empty cell.
type Piece struct {
	Type  PieceType
	Color Color
}

func (p Piece) IsEmpty() bool { return p.Type == NoPiece }

// Square addresses a cell by row and column, row 0 at the top.
type Square struct {
	Row int
	Col int
}

// Move is a from→to transition. Capture and promotion are derived effects of
// Apply, not part of the move itself.
type Move struct {
	From Square
	To   Square
}

// Board is a flat N×N grid indexed row*N+col. The flat layout keeps
// simulate-evaluate-discard cycles a single slice copy.
type Board struct {
	size  int
	cells []Piece
}

func New(size int) *Board {
	if size < 2 {
		size = 2
	}
	return &Board{size: size, cells: make([]Piece, size*size)}
}

// NewChess returns the standard 8×8 starting position. White occupies the
// bottom two rows (6 and 7) and moves toward row 0.
func NewChess() *Board {
	b := New(8)
	back := []PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for col, t := range back {
		b.Put(Square{Row: 0, Col: col}, Piece{Type: t, Color: Black})
		b.Put(Square{Row: 7, Col: col}, Piece{Type: t, Color: White})
	}
	for col := 0; col < 8; col++ {
		b.Put(Square{Row: 1, Col: col}, Piece{Type: Pawn, Color: Black})
		b.Put(Square{Row: 6, Col: col}, Piece{Type: Pawn, Color: White})
	}
	return b
}

func (b *Board) Size() int { return b.size }

func (b *Board) InBounds(sq Square) bool {
	return sq.Row >= 0 && sq.Row < b.size && sq.Col >= 0 && sq.Col < b.size
}

func (b *Board) At(sq Square) Piece {
	return b.cells[sq.Row*b.size+sq.Col]
}

func (b *Board) Put(sq Square, p Piece) {
	b.cells[sq.Row*b.size+sq.Col] = p
}

func (b *Board) Clone() *Board {
	cells := make([]Piece, len(b.cells))
	copy(cells, b.cells)
	return &Board{size: b.size, cells: cells}
}

// Apply mutates the board with mv and returns the captured piece, if any.
// A pawn reaching the opposite back rank promotes to a queen. Legality is the
// caller's responsibility (see IsLegal).
func (b *Board) Apply(mv Move) Piece {
	moving := b.At(mv.From)
	captured := b.At(mv.To)
	if moving.Type == Pawn && mv.To.Row == promotionRow(b, moving.Color) {
		moving.Type = Queen
	}
	b.Put(mv.To, moving)
	b.Put(mv.From, Piece{})
	return captured
}

// HasKing reports whether color still has its king on the board. King absence
// is the terminal-state proxy used instead of real checkmate detection; see
// the package note in movegen.go.
func (b *Board) HasKing(c Color) bool {
	for i := range b.cells {
		if b.cells[i].Type == King && b.cells[i].Color == c {
			return true
		}
	}
	return false
}

// pawnDirection is the row delta a pawn of color c advances by.
func pawnDirection(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

// pawnHomeRow is the rank pawns start on, from which the double step is allowed.
func pawnHomeRow(b *Board, c Color) int {
	if c == White {
		return b.size - 2
	}
	return 1
}

// HomeRank is the back rank for color c; used by the evaluator's
// early-king-move penalty.
func HomeRank(b *Board, c Color) int {
	if c == White {
		return b.size - 1
	}
	return 0
}

func promotionRow(b *Board, c Color) int {
	if c == White {
		return 0
	}
	return b.size - 1
}
