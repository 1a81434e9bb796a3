// Package mastery implements the PvP progression ladder: ten levels, three
// sub-ranks per level, five fragments per sub-rank. Match outcomes move a
// player one fragment at a time; persistence is the store's concern.
package mastery

const (
	MinLevel        = 1
	MaxLevel        = 10
	MinSubRank      = 1
	MaxSubRank      = 3
	FragmentsPerSub = 5
)

// Rank is a point on the ladder. Fragments stays in [0,5); a fifth fragment
// rolls into the next sub-rank, a fourth sub-rank into the next level.
type Rank struct {
	Level     int `json:"level"`
	SubRank   int `json:"sub_rank"`
	Fragments int `json:"fragments"`
}

// NewRank is the ladder entry point assigned at first profile creation.
func NewRank() Rank {
	return Rank{Level: MinLevel, SubRank: MinSubRank, Fragments: 0}
}

// Advance returns the rank after one resolved match. Pure: the input is
// never modified. The ladder floors at (1,1,0) and the level caps at 10;
// clamping happens here and only here.
func Advance(r Rank, won bool) Rank {
	next := r
	if won {
		next.Fragments++
		if next.Fragments >= FragmentsPerSub {
			next.Fragments = 0
			next.SubRank++
			if next.SubRank > MaxSubRank {
				next.SubRank = MinSubRank
				if next.Level < MaxLevel {
					next.Level++
				}
			}
		}
		return next
	}

	switch {
	case next.Fragments > 0:
		next.Fragments--
	case next.SubRank > MinSubRank:
		next.SubRank--
		next.Fragments = FragmentsPerSub - 1
	case next.Level > MinLevel:
		next.Level--
		next.SubRank = MaxSubRank
		next.Fragments = FragmentsPerSub - 1
	}
	// (1,1,0) is a fixed point on loss
	return next
}

func valid(r Rank) bool {
	return r.Level >= MinLevel && r.Level <= MaxLevel &&
		r.SubRank >= MinSubRank && r.SubRank <= MaxSubRank &&
		r.Fragments >= 0 && r.Fragments < FragmentsPerSub
}
