package board

import "testing"

func TestLegalMovesExcludeOwnPiecesAndOrigin(t *testing.T) {
	b := NewChess()
	for _, c := range []Color{White, Black} {
		for _, mv := range LegalMoves(b, c) {
			if mv.From == mv.To {
				t.Fatalf("move to own origin generated: %+v", mv)
			}
			if target := b.At(mv.To); !target.IsEmpty() && target.Color == c {
				t.Fatalf("move onto same-color piece generated: %+v", mv)
			}
		}
	}
}

func TestLegalMovesDeterministicOrder(t *testing.T) {
	b := NewChess()
	first := LegalMoves(b, White)
	second := LegalMoves(b, White)
	if len(first) != len(second) {
		t.Fatalf("move counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order differs at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSlidingPieceBlockedByInterveningPiece(t *testing.T) {
	cases := []struct {
		name    string
		piece   PieceType
		from    Square
		to      Square
		blocker Square
	}{
		{"rook file", Rook, Square{7, 0}, Square{3, 0}, Square{5, 0}},
		{"rook rank", Rook, Square{4, 1}, Square{4, 6}, Square{4, 3}},
		{"bishop", Bishop, Square{7, 2}, Square{3, 6}, Square{5, 4}},
		{"queen diagonal", Queen, Square{7, 3}, Square{3, 7}, Square{4, 6}},
		{"queen file", Queen, Square{7, 3}, Square{2, 3}, Square{5, 3}},
	}
	for _, tc := range cases {
		b := New(8)
		b.Put(tc.from, Piece{Type: tc.piece, Color: White})
		if !IsLegal(b, tc.from, tc.to) {
			t.Fatalf("%s: expected clear path to be legal", tc.name)
		}
		b.Put(tc.blocker, Piece{Type: Pawn, Color: Black})
		if IsLegal(b, tc.from, tc.to) {
			t.Fatalf("%s: expected blocked path to be illegal", tc.name)
		}
	}
}

func TestKnightJumpsOverPieces(t *testing.T) {
	b := NewChess()
	if !IsLegal(b, Square{7, 1}, Square{5, 2}) {
		t.Fatalf("knight should jump over the pawn rank")
	}
}

func TestPawnRules(t *testing.T) {
	b := NewChess()

	if !IsLegal(b, Square{6, 4}, Square{5, 4}) {
		t.Fatalf("single advance from home rank should be legal")
	}
	if !IsLegal(b, Square{6, 4}, Square{4, 4}) {
		t.Fatalf("double advance from home rank should be legal")
	}
	// diagonal without a capture target
	if IsLegal(b, Square{6, 4}, Square{5, 5}) {
		t.Fatalf("diagonal advance without capture should be illegal")
	}
	// diagonal capture
	b.Put(Square{5, 5}, Piece{Type: Pawn, Color: Black})
	if !IsLegal(b, Square{6, 4}, Square{5, 5}) {
		t.Fatalf("diagonal capture should be legal")
	}
	// forward capture is never allowed
	b.Put(Square{5, 4}, Piece{Type: Pawn, Color: Black})
	if IsLegal(b, Square{6, 4}, Square{5, 4}) {
		t.Fatalf("forward capture should be illegal")
	}
	// double step blocked by the intervening square
	if IsLegal(b, Square{6, 4}, Square{4, 4}) {
		t.Fatalf("double advance through a blocker should be illegal")
	}
	// double step only from the home rank
	b2 := New(8)
	b2.Put(Square{4, 0}, Piece{Type: Pawn, Color: White})
	if IsLegal(b2, Square{4, 0}, Square{2, 0}) {
		t.Fatalf("double advance away from home rank should be illegal")
	}
}

func TestApplyCaptureAndPromotion(t *testing.T) {
	b := New(8)
	b.Put(Square{1, 3}, Piece{Type: Pawn, Color: White})
	b.Put(Square{0, 4}, Piece{Type: Rook, Color: Black})

	captured := b.Apply(Move{From: Square{1, 3}, To: Square{0, 4}})
	if captured.Type != Rook {
		t.Fatalf("expected rook capture, got %v", captured.Type)
	}
	if got := b.At(Square{0, 4}); got.Type != Queen || got.Color != White {
		t.Fatalf("expected promoted white queen, got %+v", got)
	}
	if !b.At(Square{1, 3}).IsEmpty() {
		t.Fatalf("origin square should be empty after Apply")
	}
}

func TestHasKingTerminalProxy(t *testing.T) {
	b := NewChess()
	if !b.HasKing(White) || !b.HasKing(Black) {
		t.Fatalf("both kings present at start")
	}
	b.Put(Square{0, 4}, Piece{})
	if b.HasKing(Black) {
		t.Fatalf("black king removed, HasKing should be false")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewChess()
	c := b.Clone()
	c.Apply(Move{From: Square{6, 4}, To: Square{4, 4}})
	if b.At(Square{6, 4}).IsEmpty() {
		t.Fatalf("mutating the clone changed the source board")
	}
}
