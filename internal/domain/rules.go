package domain

// CombinationType represents the type of card combination.
type CombinationType int

const (
	Invalid CombinationType = iota
	Single
	Pair
	Triple
	Straight     // sequence of 3 or more cards
	PairSequence // consecutive pairs ("doi thong")
	Quad         // four of a kind (bomb)
)

// Combination is a classified, immutable grouping of cards with a
// comparable strength.
type Combination struct {
	Type  CombinationType `json:"type"`
	Cards []Card          `json:"cards"` // sorted ascending by power
	Value int             `json:"value"` // power of the highest card
	Count int             `json:"count"` // number of cards
}

// Rules captures the ruleset variations that differ between tables.
type Rules struct {
	// PairSequences enables the "doi thong" combination and its chops.
	PairSequences bool
	// MinPairSequence is the number of consecutive pairs required for the
	// shortest pair sequence.
	MinPairSequence int
	// BombBeatsStraight lets a quad beat any straight regardless of
	// length. Off in the standard southern game.
	BombBeatsStraight bool
}

// DefaultRules returns the standard southern Tien Len ruleset.
func DefaultRules() Rules {
	return Rules{PairSequences: true, MinPairSequence: 3}
}

func (r Rules) minPairSequence() int {
	if r.MinPairSequence < 2 {
		return 3
	}
	return r.MinPairSequence
}

// Identify classifies a set of cards as a Tien Len combination. It is a
// pure function of the card multiset; input order does not matter.
func (r Rules) Identify(cards []Card) (Combination, error) {
	n := len(cards)
	if n == 0 {
		return Combination{}, ErrInvalidCombination
	}

	sorted := append([]Card{}, cards...)
	SortHand(sorted)
	top := sorted[n-1].Power()

	if n == 1 {
		return Combination{Type: Single, Cards: sorted, Value: top, Count: 1}, nil
	}

	// Same-rank sets: pair, triple, quad (bomb).
	if allSameRank(sorted) {
		switch n {
		case 2:
			return Combination{Type: Pair, Cards: sorted, Value: top, Count: 2}, nil
		case 3:
			return Combination{Type: Triple, Cards: sorted, Value: top, Count: 3}, nil
		case 4:
			return Combination{Type: Quad, Cards: sorted, Value: top, Count: 4}, nil
		}
		return Combination{}, ErrInvalidCombination
	}

	// Straights: length >= 3, ranks consecutive, no duplicates, cannot
	// contain the 2.
	if isStraight(sorted) {
		return Combination{Type: Straight, Cards: sorted, Value: top, Count: n}, nil
	}

	if r.PairSequences && isPairSequence(sorted, r.minPairSequence()) {
		return Combination{Type: PairSequence, Cards: sorted, Value: top, Count: n}, nil
	}

	return Combination{}, ErrInvalidCombination
}

// CanBeat determines if next beats prev according to the configured rules.
// Includes the "pig chopping" ladder for quads and pair sequences.
func (r Rules) CanBeat(prev, next Combination) bool {
	// Combinations decoded from the shared document are untrusted; a
	// malformed one loses rather than panics.
	if prev.Type == Invalid || next.Type == Invalid ||
		len(prev.Cards) == 0 || len(next.Cards) == 0 {
		return false
	}

	prevSingleTwo := prev.Type == Single && prev.Cards[0].Rank == RankTwo
	prevPairTwo := prev.Type == Pair && prev.Cards[0].Rank == RankTwo

	// Pair sequences chop twos, quads and shorter sequences. Longer
	// sequences sit higher on the ladder.
	if r.PairSequences && next.Type == PairSequence {
		switch {
		case next.Count >= 10:
			if prevSingleTwo || prevPairTwo || prev.Type == Quad {
				return true
			}
			if prev.Type == PairSequence && prev.Count < next.Count {
				return true
			}
		case next.Count == 8:
			if prevSingleTwo || prevPairTwo || prev.Type == Quad {
				return true
			}
			if prev.Type == PairSequence && prev.Count < 8 {
				return true
			}
		default:
			if prevSingleTwo {
				return true
			}
		}
	}

	// Quads chop single and paired twos, and the shortest pair sequence.
	if next.Type == Quad {
		if prevSingleTwo || prevPairTwo {
			return true
		}
		if r.PairSequences && prev.Type == PairSequence && prev.Count == 2*r.minPairSequence() {
			return true
		}
		if r.BombBeatsStraight && prev.Type == Straight {
			return true
		}
	}

	// Standard rule: like against like, strictly higher power.
	if next.Type != prev.Type || next.Count != prev.Count {
		return false
	}
	return next.Value > prev.Value
}

// CheckPlay validates a candidate play against the last combination on
// the trick and returns the classified combination. A nil last means the
// candidate leads the trick, so any valid combination is accepted.
// Passing is not a play; the game state machine handles it separately.
func (r Rules) CheckPlay(candidate []Card, last *Combination) (Combination, error) {
	combo, err := r.Identify(candidate)
	if err != nil {
		return Combination{}, err
	}
	if last == nil {
		return combo, nil
	}
	if !r.CanBeat(*last, combo) {
		return Combination{}, ErrIllegalPlay
	}
	return combo, nil
}

func allSameRank(cards []Card) bool {
	if len(cards) == 0 {
		return false
	}
	rank := cards[0].Rank
	for _, c := range cards {
		if c.Rank != rank {
			return false
		}
	}
	return true
}

// isStraight expects cards sorted ascending by power.
func isStraight(cards []Card) bool {
	if len(cards) < 3 {
		return false
	}
	for i, c := range cards {
		if c.Rank == RankTwo { // 2 cannot be in a straight
			return false
		}
		if i > 0 && c.Rank != cards[i-1].Rank+1 {
			return false
		}
	}
	return true
}

// isPairSequence expects cards sorted ascending by power.
func isPairSequence(cards []Card, minPairs int) bool {
	if len(cards)%2 != 0 || len(cards) < 2*minPairs {
		return false
	}
	for i := 0; i < len(cards); i += 2 {
		if cards[i].Rank == RankTwo { // 2 cannot be part of a pair sequence
			return false
		}
		if cards[i].Rank != cards[i+1].Rank {
			return false
		}
		if i > 0 && cards[i].Rank != cards[i-2].Rank+1 {
			return false
		}
	}
	return true
}
