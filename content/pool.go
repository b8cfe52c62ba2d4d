package content

import (
	"math/rand"

	"pairs-server/gameerrors"
)

// Pool supplies the character names rendered on card faces. The coordinator
// draws one batch per session so both clients see identical faces.
type Pool interface {
	// Pick returns n distinct names chosen uniformly at random.
	// Fails with gameerrors.ErrInsufficientContent when the pool is too small.
	Pick(n int) ([]string, error)
	Size() int
}

// StaticPool is a Pool backed by a fixed slice of names.
type StaticPool struct {
	names []string
}

// NewStaticPool creates a StaticPool over the given names.
func NewStaticPool(names []string) *StaticPool {
	return &StaticPool{names: names}
}

// DefaultPool returns the built-in character catalog.
func DefaultPool() *StaticPool {
	return NewStaticPool(characterCatalog)
}

// Size returns the number of names in the pool.
func (p *StaticPool) Size() int {
	return len(p.names)
}

// Pick returns n distinct names chosen uniformly at random.
// The pool itself is never reordered.
func (p *StaticPool) Pick(n int) ([]string, error) {
	if n < 0 || n > len(p.names) {
		return nil, gameerrors.ErrInsufficientContent
	}
	shuffled := make([]string, len(p.names))
	copy(shuffled, p.names)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:n], nil
}
