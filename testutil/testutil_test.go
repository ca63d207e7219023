package testutil

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNG_Deterministic(t *testing.T) {
	a, b := NewRNG(7), NewRNG(7)
	assert.Equal(t, a.Vocabulary(20, 2, 4), b.Vocabulary(20, 2, 4))

	first := a.Term(3, 3)
	a.Reset()
	a.Vocabulary(20, 2, 4)
	assert.Equal(t, first, a.Term(3, 3))
	assert.Equal(t, int64(7), a.Seed())
}

func TestRNG_Vocabulary(t *testing.T) {
	vocab := NewRNG(1).Vocabulary(300, 2, 5)
	require.Len(t, vocab, 300)
	assert.True(t, slices.IsSorted(vocab))
	assert.Len(t, slices.Compact(slices.Clone(vocab)), 300)
}

func TestRNG_Values(t *testing.T) {
	rng := NewRNG(3)
	vocab := []string{"a", "b"}

	vals := rng.Values(1000, vocab, 0.25)
	missing := 0
	for _, v := range vals {
		if v == nil {
			missing++
			continue
		}
		assert.Contains(t, vocab, string(v))
	}
	assert.InDelta(t, 250, missing, 60)
	assert.Empty(t, slices.DeleteFunc(rng.Values(50, vocab, 0), func(v []byte) bool { return v != nil }))
}

func TestRNG_DescendingScores(t *testing.T) {
	scores := NewRNG(5).DescendingScores(100)
	assert.True(t, slices.IsSortedFunc(scores, func(a, b float32) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	}))
}
