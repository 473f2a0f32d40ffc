// Package rng centralizes deterministic random number generation for the
// optimizer. A single seeded generator is created per request and threaded
// through the tour operators and the IAFSA engine sequentially — behavioral
// operators never share a *rand.Rand across goroutines.
package rng

import "math/rand"

// defaultSeed is used when callers pass seed==0, keeping "no seed supplied"
// reproducible rather than time-based.
const defaultSeed int64 = 1

// New returns a deterministic *rand.Rand for the given seed. seed==0 maps
// to defaultSeed so that an unset seed still produces reproducible runs
// (property E6: fixed seed + fixed inputs → identical output).
func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = defaultSeed
	}
	return rand.New(rand.NewSource(seed))
}
