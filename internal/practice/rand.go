package practice

import (
	"math/rand/v2"
	"sync"
	"time"
)

// lockedRand lets concurrent requests share one seeded source.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// newRand returns a source seeded with seed, or with the clock when seed is 0.
func newRand(seed uint64) *lockedRand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedRand{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *lockedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}
