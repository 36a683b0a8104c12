package service

import (
	"math/rand/v2"
	"sync"
)

// RandomSource hands out a generator per call so concurrent searches never
// share one rng.
type RandomSource interface {
	New() *rand.Rand
}

type defaultRandomSource struct{}

// NewRandomSource returns a source seeded from the runtime's global generator
func NewRandomSource() RandomSource {
	return defaultRandomSource{}
}

func (defaultRandomSource) New() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

type seededRandomSource struct {
	mu     sync.Mutex
	master *rand.Rand
}

// NewSeededRandomSource returns a deterministic source for tests and replays
func NewSeededRandomSource(seed uint64) RandomSource {
	return &seededRandomSource{master: rand.New(rand.NewPCG(seed, seed))}
}

func (s *seededRandomSource) New() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rand.New(rand.NewPCG(s.master.Uint64(), s.master.Uint64()))
}
