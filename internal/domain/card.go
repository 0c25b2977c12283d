package domain

// Suit identifies one of the four French suits.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Ranks run 3..15 in ascending strength: 3 is the weakest card and 15
// encodes the "2", the strongest card in Tien Len.
const (
	RankMin = 3
	RankAce = 14
	RankTwo = 15
)

// Suits lists the four suits in canonical deck order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Card is a single playing card. Immutable once created.
type Card struct {
	Suit Suit `json:"suit"`
	Rank int  `json:"rank"`
}

// suitOrder breaks ties between cards of equal rank: spades < clubs <
// diamonds < hearts, the conventional Tien Len ordering.
func suitOrder(s Suit) int {
	switch s {
	case Spades:
		return 0
	case Clubs:
		return 1
	case Diamonds:
		return 2
	case Hearts:
		return 3
	}
	return 0
}

// Power returns the total-order strength of a card. Rank is the primary
// key; suit only separates cards of equal rank.
func (c Card) Power() int {
	return c.Rank*4 + suitOrder(c.Suit)
}
