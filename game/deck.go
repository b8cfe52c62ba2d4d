package game

import (
	"math/rand"

	"pairs-server/content"
)

// Card is one position on the board. Content is 1-indexed into the session's
// character names. Flipped is transient within a turn; Matched is monotonic,
// once set it never clears.
type Card struct {
	Position int
	Content  int
	Flipped  bool
	Matched  bool
}

// IsMatch reports whether two cards form a pair: same content at two
// different positions.
func IsMatch(a, b Card) bool {
	return a.Content == b.Content && a.Position != b.Position
}

// BuildDeck selects pairCount distinct names from the pool and produces an
// unbiased random permutation of the 2*pairCount content indices
// (Fisher–Yates). The order is 1-indexed into the returned names so the wire
// format is directly comparable across clients.
func BuildDeck(pool content.Pool, pairCount int) (order []int, names []string, err error) {
	names, err = pool.Pick(pairCount)
	if err != nil {
		return nil, nil, err
	}

	order = make([]int, 0, 2*pairCount)
	for i := 1; i <= pairCount; i++ {
		order = append(order, i, i)
	}
	for i := len(order) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order, names, nil
}

// NewCards builds the per-position card state for a deck order.
func NewCards(order []int) []Card {
	cards := make([]Card, len(order))
	for i, contentIdx := range order {
		cards[i] = Card{Position: i, Content: contentIdx}
	}
	return cards
}

// AllMatched reports whether every card has been resolved.
func AllMatched(cards []Card) bool {
	for _, c := range cards {
		if !c.Matched {
			return false
		}
	}
	return true
}

// MatchedPairs counts resolved pairs.
func MatchedPairs(cards []Card) int {
	n := 0
	for _, c := range cards {
		if c.Matched {
			n++
		}
	}
	return n / 2
}
