package puzzle

import (
	"math/rand"
	"sync"
	"time"
)

// Source supplies the randomness behind candidate selection. Injecting it
// keeps the builders deterministic under test.
type Source interface {
	Intn(n int) int
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// DefaultSource returns a time-seeded source safe for concurrent use.
func DefaultSource() Source {
	return &lockedSource{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// PickUniform chooses one candidate uniformly. False when the set is empty.
func PickUniform[T any](src Source, candidates []T) (T, bool) {
	var zero T
	if len(candidates) == 0 {
		return zero, false
	}
	return candidates[src.Intn(len(candidates))], true
}

// Shuffle permutes a copy of words with Fisher-Yates.
func Shuffle(src Source, words []string) []string {
	out := append([]string(nil), words...)
	for i := len(out) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
