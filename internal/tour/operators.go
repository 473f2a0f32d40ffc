// Package tour provides the pure, seed-deterministic operators the IAFSA
// engine uses to generate and perturb candidate tours. Every operator
// clones its input rather than mutating it in place, so callers can hold
// onto a tour (e.g. the population's current-best) while generating
// variants from it.
package tour

import (
	"math/rand"

	"github.com/shiva/routeopt/internal/model"
)

// Perturb returns a copy of tour with k random disjoint interior index
// pairs swapped. If the tour has fewer than two interior positions, the
// copy is returned unchanged.
func Perturb(r *rand.Rand, t model.Tour, k int) model.Tour {
	out := t.Clone()
	interiorLen := len(out) - 2
	if interiorLen < 2 {
		return out
	}

	available := make([]int, interiorLen)
	for i := range available {
		available[i] = i + 1
	}
	r.Shuffle(len(available), func(i, j int) { available[i], available[j] = available[j], available[i] })

	pairs := k
	if max := interiorLen / 2; pairs > max {
		pairs = max
	}
	for p := 0; p < pairs; p++ {
		a, b := available[2*p], available[2*p+1]
		out[a], out[b] = out[b], out[a]
	}
	return out
}

// RandomTour returns a depot-anchored tour over a uniformly random
// permutation of 1..n-1.
func RandomTour(r *rand.Rand, n int) model.Tour {
	interior := make([]int, n-1)
	for i := range interior {
		interior[i] = i + 1
	}
	r.Shuffle(len(interior), func(i, j int) { interior[i], interior[j] = interior[j], interior[i] })

	out := make(model.Tour, 0, n+1)
	out = append(out, 0)
	out = append(out, interior...)
	out = append(out, 0)
	return out
}

// Greedy builds a nearest-neighbor tour over metric, visiting startIndex
// immediately after the depot and then always stepping to the closest
// unvisited node, closing back to the depot last.
func Greedy(metric model.Matrix, startIndex int) model.Tour {
	n := metric.Size()
	if n < 1 {
		return nil
	}
	if n == 1 {
		return model.Tour{0, 0}
	}

	visited := make([]bool, n)
	visited[0] = true
	visited[startIndex] = true

	out := make(model.Tour, 0, n+1)
	out = append(out, 0, startIndex)
	current := startIndex

	for visitedCount := 2; visitedCount < n; visitedCount++ {
		next := -1
		best := model.Inf
		for candidate := 0; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}
			if cost := metric[current][candidate]; cost < best {
				best = cost
				next = candidate
			}
		}
		if next == -1 {
			break
		}
		visited[next] = true
		out = append(out, next)
		current = next
	}

	out = append(out, 0)
	return out
}
