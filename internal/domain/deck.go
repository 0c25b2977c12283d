package domain

import (
	"math/rand"
	"sort"
)

const (
	// DeckSize is the number of cards in a full deck.
	DeckSize = 52
	// HandSize is the number of cards dealt to each player.
	HandSize = 13
)

// NewDeck returns the canonical ordered 52-card deck, one card per
// (suit, rank) pair.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for r := RankMin; r <= RankTwo; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shuffle permutes the deck in place with a Fisher-Yates walk from the
// last index down, drawing a uniform index in [0, i] at each step, so
// every permutation is equally likely.
func Shuffle(rng *rand.Rand, deck []Card) {
	for i := len(deck) - 1; i >= 1; i-- {
		j := rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// Deal partitions the first 13*n cards of the deck into n hands of 13 in
// player order, each sorted ascending by power. Returns
// ErrInsufficientCards when the deck cannot cover n hands.
func Deal(deck []Card, n int) ([][]Card, error) {
	if n*HandSize > len(deck) {
		return nil, ErrInsufficientCards
	}
	hands := make([][]Card, n)
	for i := 0; i < n; i++ {
		hand := append([]Card{}, deck[i*HandSize:(i+1)*HandSize]...)
		SortHand(hand)
		hands[i] = hand
	}
	return hands, nil
}

// SortHand orders a hand by ascending power.
func SortHand(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Power() < cards[j].Power()
	})
}

// RemoveCards removes the specified cards from a hand and returns the
// updated hand.
func RemoveCards(hand []Card, toRemove []Card) []Card {
	if len(toRemove) == 0 || len(hand) == 0 {
		return hand
	}

	removeCounts := make(map[Card]int, len(toRemove))
	for _, card := range toRemove {
		removeCounts[card]++
	}

	updated := make([]Card, 0, len(hand))
	for _, card := range hand {
		if count, ok := removeCounts[card]; ok && count > 0 {
			removeCounts[card] = count - 1
			continue
		}
		updated = append(updated, card)
	}

	return updated
}

// HandContains reports whether every card in cards is present in hand,
// counting duplicates.
func HandContains(hand []Card, cards []Card) bool {
	counts := make(map[Card]int, len(hand))
	for _, card := range hand {
		counts[card]++
	}
	for _, card := range cards {
		if counts[card] == 0 {
			return false
		}
		counts[card]--
	}
	return true
}
