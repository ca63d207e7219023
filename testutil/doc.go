// Package testutil provides deterministic fixtures for segread tests.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Terms
//
//	rng := testutil.NewRNG(seed)
//	vocab := rng.Vocabulary(100, 3, 8)       // sorted, unique
//	values := rng.Values(1000, vocab, 0.1)   // per-document values, 10% missing
//
// # Ranked Hits
//
//	scores := rng.DescendingScores(10)
package testutil
