package board

// Move generation intentionally stops at movement geometry plus occupancy:
// a move that leaves the mover's own king attacked is still generated, and
// "checkmate" degrades to the opponent's king being captured off the board.
// That is a product decision for a casual collection, not an oversight; a
// rules upgrade would replace HasKing with real attack-map detection.

// IsLegal reports whether moving the piece on from to to is legal for the
// piece's movement geometry and the current occupancy. Pure: never mutates b.
func IsLegal(b *Board, from, to Square) bool {
	if !b.InBounds(from) || !b.InBounds(to) || from == to {
		return false
	}
	piece := b.At(from)
	if piece.IsEmpty() {
		return false
	}
	target := b.At(to)
	if !target.IsEmpty() && target.Color == piece.Color {
		return false
	}

	rowDiff := abs(to.Row - from.Row)
	colDiff := abs(to.Col - from.Col)

	switch piece.Type {
	case Pawn:
		dir := pawnDirection(piece.Color)
		if colDiff == 0 && to.Row == from.Row+dir && target.IsEmpty() {
			return true
		}
		// diagonal only when capturing
		if colDiff == 1 && to.Row == from.Row+dir && !target.IsEmpty() {
			return true
		}
		// double step from the home rank through an empty square
		if colDiff == 0 && to.Row == from.Row+2*dir && target.IsEmpty() &&
			from.Row == pawnHomeRow(b, piece.Color) &&
			b.At(Square{Row: from.Row + dir, Col: from.Col}).IsEmpty() {
			return true
		}
		return false
	case Rook:
		return (rowDiff == 0 || colDiff == 0) && pathClear(b, from, to)
	case Knight:
		return (rowDiff == 2 && colDiff == 1) || (rowDiff == 1 && colDiff == 2)
	case Bishop:
		return rowDiff == colDiff && pathClear(b, from, to)
	case Queen:
		return (rowDiff == colDiff || rowDiff == 0 || colDiff == 0) && pathClear(b, from, to)
	case King:
		return rowDiff <= 1 && colDiff <= 1
	default:
		return false
	}
}

// LegalMoves enumerates every legal move for color. Order is row-major by
// origin then destination, so repeated calls on the same position are
// deterministic.
func LegalMoves(b *Board, c Color) []Move {
	var moves []Move
	n := b.Size()
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			from := Square{Row: row, Col: col}
			piece := b.At(from)
			if piece.IsEmpty() || piece.Color != c {
				continue
			}
			for toRow := 0; toRow < n; toRow++ {
				for toCol := 0; toCol < n; toCol++ {
					to := Square{Row: toRow, Col: toCol}
					if IsLegal(b, from, to) {
						moves = append(moves, Move{From: from, To: to})
					}
				}
			}
		}
	}
	return moves
}

// pathClear reports whether every square strictly between from and to is
// empty. Callers guarantee the squares are on a shared rank, file or diagonal.
func pathClear(b *Board, from, to Square) bool {
	rowDir := sign(to.Row - from.Row)
	colDir := sign(to.Col - from.Col)
	row, col := from.Row+rowDir, from.Col+colDir
	for row != to.Row || col != to.Col {
		if !b.At(Square{Row: row, Col: col}).IsEmpty() {
			return false
		}
		row += rowDir
		col += colDir
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
