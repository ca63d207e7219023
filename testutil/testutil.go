package testutil

import (
	"math/rand"
	"slices"
	"sync"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Term returns a random lowercase term with length in [minLen, maxLen].
func (r *RNG) Term(minLen, maxLen int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.term(minLen, maxLen)
}

func (r *RNG) term(minLen, maxLen int) string {
	n := minLen
	if maxLen > minLen {
		n += r.rand.Intn(maxLen - minLen + 1)
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.rand.Intn(len(alphabet))]
	}
	return string(b)
}

// Vocabulary returns n distinct random terms in ascending order. The
// length range must admit at least n distinct terms.
func (r *RNG) Vocabulary(n, minLen, maxLen int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		t := r.term(minLen, maxLen)
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Values draws one value per document from vocab. Each document has no
// value with probability missingRate; such entries are nil.
func (r *RNG) Values(numDocs int, vocab []string, missingRate float64) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]byte, numDocs)
	for i := range out {
		if r.rand.Float64() < missingRate {
			continue
		}
		out[i] = []byte(vocab[r.rand.Intn(len(vocab))])
	}
	return out
}

// DescendingScores returns n scores in (0, 1] sorted from best to worst.
// Neighbouring scores may tie.
func (r *RNG) DescendingScores(n int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float32, n)
	for i := range out {
		// Coarse steps make ties likely.
		out[i] = float32(r.rand.Intn(10)+1) / 10
	}
	slices.SortFunc(out, func(a, b float32) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		default:
			return 0
		}
	})
	return out
}
