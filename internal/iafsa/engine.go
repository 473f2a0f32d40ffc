// Package iafsa implements the Improved Artificial Fish Swarm Algorithm
// used to refine the baseline tour toward the caller's weighted priorities.
// A single attempt evolves a population of candidate tours ("fish") under
// three behaviors — prey, swarm, follow — then the engine retries with
// progressively larger populations and iteration budgets until it can show
// a strict improvement over the baseline on the dominant priority metric,
// or the retry budget runs out.
package iafsa

import (
	"context"
	"math"
	"math/rand"

	"github.com/shiva/routeopt/internal/fitness"
	"github.com/shiva/routeopt/internal/model"
	"github.com/shiva/routeopt/internal/tour"
)

const (
	earlyStoppingThreshold = 65
	improvementThreshold   = 0.02
	preyBaseSwaps          = 3
	swarmBaseSwaps         = 3
	swarmExtraSwaps        = 2
	followBaseSwaps        = 2
	followExtraSwaps       = 1
)

// Config bounds the resources a single call to Optimize may spend before
// scaling kicks in.
type Config struct {
	BaseFishPopulation int
	BaseIterations     int
	MaxRetries         int
}

// Engine runs IAFSA attempts against a fixed matrix pair.
type Engine struct {
	cfg Config
}

// New returns an Engine. A zero or negative fish count or iteration count
// falls back to 30 fish or 200 iterations; a negative MaxRetries falls back
// to 3, while a zero MaxRetries means a single attempt.
func New(cfg Config) *Engine {
	if cfg.BaseFishPopulation <= 0 {
		cfg.BaseFishPopulation = 30
	}
	if cfg.BaseIterations <= 0 {
		cfg.BaseIterations = 200
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 3
	}
	return &Engine{cfg: cfg}
}

// Result is the outcome of Optimize: the chosen tour, its fitness, and
// whether the dominant-priority guarantee was actually met.
type Result struct {
	Best             model.Tour
	BestFitness      float64
	BeatBaseline     bool
	RetriesExhausted bool
}

// metricTotals holds the best-seen-so-far value of each raw metric across
// retries, the per-metric bookkeeping the engine uses to decide whether a
// priority-specific tour actually beat the baseline.
type metricTotals struct {
	time, cost, carbon             float64
	timeTour, costTour, carbonTour model.Tour
}

// Optimize evolves candidate tours seeded from baseline and returns the
// best one found. ctx cancellation is honored at iteration and retry
// boundaries; Optimize never returns a partial tour — on cancellation it
// returns whatever the best fish was at the last completed iteration.
func (e *Engine) Optimize(ctx context.Context, r *rand.Rand, timeMatrix, distanceMatrix model.Matrix, weights model.Weights, fuelCostPerKm float64, baseline model.Tour) Result {
	n := timeMatrix.Size()
	normalized := weights.Normalize()
	dominantName, pmaxProportion, hasDominant := normalized.Dominant()
	pmax := pmaxProportion * 100

	advanced := pmax >= 50
	problemFactor := math.Min(2.0, 1.0+float64(n-1)/20.0)

	baseFish := e.cfg.BaseFishPopulation
	baseIterations := e.cfg.BaseIterations
	if advanced {
		switch {
		case pmax >= 80:
			baseFish = int(float64(baseFish) * 1.8 * problemFactor)
			baseIterations = int(float64(baseIterations) * 2.0 * problemFactor)
		case pmax >= 60:
			baseFish = int(float64(baseFish) * 1.5 * problemFactor)
			baseIterations = int(float64(baseIterations) * 1.5 * problemFactor)
		}
	}

	baselineBreakdown := fitness.Compute(baseline, timeMatrix, distanceMatrix, fuelCostPerKm)

	var globalBest model.Fish
	globalBestFitness := model.Inf
	totals := metricTotals{time: model.Inf, cost: model.Inf, carbon: model.Inf}
	foundBetter := false

	for retry := 0; retry <= e.cfg.MaxRetries; retry++ {
		if retry > 0 && ctx.Err() != nil {
			break
		}

		retryFactor := 1 + float64(retry)*0.6
		currentFish := int(float64(baseFish) * retryFactor)
		currentIterations := int(float64(baseIterations) * retryFactor)
		if retry == 0 {
			currentIterations = min(baseIterations, 100)
		}

		attemptFish, attemptFitness := e.runAttempt(ctx, r, timeMatrix, distanceMatrix, weights, fuelCostPerKm, baseline, currentFish, currentIterations, pmax, n)

		if attemptFitness < globalBestFitness {
			globalBest = attemptFish
			globalBestFitness = attemptFitness
		}

		breakdown := fitness.Compute(attemptFish.Tour, timeMatrix, distanceMatrix, fuelCostPerKm)
		if breakdown.TimeS < totals.time {
			totals.time, totals.timeTour = breakdown.TimeS, attemptFish.Tour
		}
		if breakdown.Cost < totals.cost {
			totals.cost, totals.costTour = breakdown.Cost, attemptFish.Tour
		}
		if breakdown.CarbonKg < totals.carbon {
			totals.carbon, totals.carbonTour = breakdown.CarbonKg, attemptFish.Tour
		}

		isBetter := false
		if hasDominant {
			switch dominantName {
			case "time":
				isBetter = totals.time < baselineBreakdown.TimeS
			case "cost":
				isBetter = totals.cost < baselineBreakdown.Cost
			case "carbon":
				isBetter = totals.carbon < baselineBreakdown.CarbonKg
			}
		} else {
			isBetter = globalBestFitness < fitness.Evaluate(baseline, timeMatrix, distanceMatrix, weights, fuelCostPerKm, nil, 0)
		}
		foundBetter = foundBetter || isBetter

		if !advanced || isBetter || retry == e.cfg.MaxRetries {
			break
		}
	}

	result := Result{Best: globalBest.Tour, BestFitness: globalBestFitness, BeatBaseline: foundBetter, RetriesExhausted: !foundBetter}

	if hasDominant && foundBetter {
		switch dominantName {
		case "time":
			if totals.timeTour != nil {
				result.Best = totals.timeTour
			}
		case "cost":
			if totals.costTour != nil {
				result.Best = totals.costTour
			}
		case "carbon":
			if totals.carbonTour != nil {
				result.Best = totals.carbonTour
			}
		}
	}

	return result
}

// runAttempt runs one full population-evolution loop and returns the best
// fish found, by fitness (with the baseline as the diversity reference).
func (e *Engine) runAttempt(ctx context.Context, r *rand.Rand, timeMatrix, distanceMatrix model.Matrix, weights model.Weights, fuelCostPerKm float64, baseline model.Tour, numFish, iterations int, pmax float64, n int) (model.Fish, float64) {
	diversityPenalty := 0.15
	switch {
	case pmax >= 80:
		diversityPenalty = 0.05
	case pmax <= 50:
		diversityPenalty = 0.20
	}

	mutationIntensity := 1.0
	switch {
	case pmax >= 80:
		mutationIntensity = 2.0
	case pmax >= 60:
		mutationIntensity = 1.5
	}
	preySwaps := int(preyBaseSwaps * mutationIntensity)
	swarmSwaps := int(swarmBaseSwaps*mutationIntensity) + swarmExtraSwaps
	followSwaps := int(followBaseSwaps*mutationIntensity) + followExtraSwaps

	eval := func(t model.Tour) float64 {
		return fitness.Evaluate(t, timeMatrix, distanceMatrix, weights, fuelCostPerKm, baseline, diversityPenalty)
	}

	population := initPopulation(r, baseline, numFish, n, timeMatrix, distanceMatrix, weights)

	bestIdx := argmin(population, eval)
	bestFitness := eval(population[bestIdx].Tour)
	bestFish := population[bestIdx]

	stagnationInterval := 50
	if pmax >= 80 {
		stagnationInterval = 30
	}

	noImprovementCount := 0

	for iteration := 0; iteration < iterations; iteration++ {
		if ctx.Err() != nil {
			break
		}

		for i := range population {
			preyBehavior(r, &population[i], eval, preySwaps)
			swarmBehavior(r, &population[i], population, eval, swarmSwaps)
			followBehavior(r, &population[i], bestFish, eval, followSwaps)
		}

		iterIdx := argmin(population, eval)
		iterFitness := eval(population[iterIdx].Tour)

		if iterFitness < bestFitness {
			improvementRatio := (bestFitness - iterFitness) / bestFitness
			bestFish = population[iterIdx]
			bestFitness = iterFitness
			if improvementRatio > improvementThreshold {
				noImprovementCount = 0
			} else {
				noImprovementCount++
			}
		} else {
			noImprovementCount++
		}

		if iteration%stagnationInterval == 0 && iteration > 0 {
			worstIdx := argmax(population, eval)
			population[worstIdx] = model.Fish{Tour: tour.RandomTour(r, n), VisualRange: r.Float64() * 10}
		}

		if noImprovementCount >= earlyStoppingThreshold {
			break
		}
	}

	return bestFish, bestFitness
}

// initPopulation always seeds fish #0 with baseline, fills 80% of the
// remainder with tiered perturbations (20% each, at most 2/3/5/10 swaps,
// capped at a quarter, a third, a half and all of the destination count
// respectively) and 20% with uniformly random tours, then appends a handful
// of priority-specific greedy seeds.
func initPopulation(r *rand.Rand, baseline model.Tour, numFish, n int, timeMatrix, distanceMatrix model.Matrix, weights model.Weights) []model.Fish {
	pop := make([]model.Fish, 0, numFish+8)
	pop = append(pop, model.Fish{Tour: baseline.Clone(), VisualRange: r.Float64() * 10})

	numDestinations := n - 1
	remaining := numFish - 1
	for i := 0; i < remaining; i++ {
		var t model.Tour
		switch frac := float64(i) / float64(remaining); {
		case frac < 0.2:
			t = tour.Perturb(r, baseline, min(numDestinations/4, 2))
		case frac < 0.4:
			t = tour.Perturb(r, baseline, min(numDestinations/3, 3))
		case frac < 0.6:
			t = tour.Perturb(r, baseline, min(numDestinations/2, 5))
		case frac < 0.8:
			t = tour.Perturb(r, baseline, min(numDestinations, 10))
		default:
			t = tour.RandomTour(r, n)
		}
		pop = append(pop, model.Fish{Tour: t, VisualRange: r.Float64() * 10})
	}

	name, _, hasDominant := weights.Normalize().Dominant()
	if hasDominant && n > 2 {
		switch name {
		case "time":
			for _, start := range distinctStarts(n, 3) {
				pop = append(pop, model.Fish{Tour: tour.Greedy(timeMatrix, start), VisualRange: r.Float64() * 10})
			}
		case "cost", "carbon":
			for _, start := range distinctStarts(n, min(6, n-1)) {
				pop = append(pop, model.Fish{Tour: tour.Greedy(distanceMatrix, start), VisualRange: r.Float64() * 10})
			}
		}
	}

	return pop
}

// distinctStarts returns up to count distinct interior indices (1..n-1) to
// seed greedy tours from different starting points.
func distinctStarts(n, count int) []int {
	if count > n-1 {
		count = n - 1
	}
	starts := make([]int, 0, count)
	for i := 1; i <= count; i++ {
		starts = append(starts, i)
	}
	return starts
}

func preyBehavior(r *rand.Rand, fish *model.Fish, eval func(model.Tour) float64, swaps int) {
	original := eval(fish.Tour)
	candidate := tour.Perturb(r, fish.Tour, swaps)
	if eval(candidate) < original {
		fish.Tour = candidate
	}
}

func swarmBehavior(r *rand.Rand, fish *model.Fish, population []model.Fish, eval func(model.Tour) float64, swaps int) {
	if len(population) == 0 {
		return
	}
	sum := 0.0
	for _, f := range population {
		sum += eval(f.Tour)
	}
	avg := sum / float64(len(population))
	current := eval(fish.Tour)
	if avg >= current {
		return
	}
	candidate := tour.Perturb(r, fish.Tour, swaps)
	if eval(candidate) < current {
		fish.Tour = candidate
	}
}

func followBehavior(r *rand.Rand, fish *model.Fish, best model.Fish, eval func(model.Tour) float64, swaps int) {
	current := eval(fish.Tour)
	if eval(best.Tour) >= current {
		return
	}
	candidate := tour.Perturb(r, fish.Tour, swaps)
	if eval(candidate) < current {
		fish.Tour = candidate
	}
}

func argmin(pop []model.Fish, eval func(model.Tour) float64) int {
	best := 0
	bestVal := eval(pop[0].Tour)
	for i := 1; i < len(pop); i++ {
		if v := eval(pop[i].Tour); v < bestVal {
			bestVal = v
			best = i
		}
	}
	return best
}

func argmax(pop []model.Fish, eval func(model.Tour) float64) int {
	worst := 0
	worstVal := eval(pop[0].Tour)
	for i := 1; i < len(pop); i++ {
		if v := eval(pop[i].Tour); v > worstVal {
			worstVal = v
			worst = i
		}
	}
	return worst
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
