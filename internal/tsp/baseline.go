// Package tsp implements the baseline single-vehicle tour construction the
// IAFSA engine is seeded from and measured against.
package tsp

import "github.com/shiva/routeopt/internal/model"

// Baseline builds a closed tour over the time matrix using the
// cheapest-arc first-solution heuristic: starting at the depot, repeatedly
// extend to the lowest-cost unvisited neighbor, then close back to the
// depot. No local search follows. Returns nil if the matrix is degenerate
// (no feasible arc exists to reach every node).
//
// Complexity: O(N^2)
func Baseline(timeMatrix model.Matrix) model.Tour {
	n := timeMatrix.Size()
	if n < 1 {
		return nil
	}
	if n == 1 {
		return model.Tour{0, 0}
	}

	visited := make([]bool, n)
	visited[0] = true

	tour := make(model.Tour, 0, n+1)
	tour = append(tour, 0)
	current := 0

	for visitedCount := 1; visitedCount < n; visitedCount++ {
		next := -1
		best := model.Inf
		for candidate := 0; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}
			cost := timeMatrix[current][candidate]
			if cost < best {
				best = cost
				next = candidate
			}
		}
		if next == -1 {
			return nil
		}
		visited[next] = true
		tour = append(tour, next)
		current = next
	}

	tour = append(tour, 0)
	return tour
}
