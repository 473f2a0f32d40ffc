// Package fitness scores candidate tours against the user's time/cost/carbon
// priorities. The scoring is deliberately non-linear: whichever priority the
// caller weights most heavily is sharpened so the search pressure bends hard
// toward it rather than producing a lukewarm compromise tour.
package fitness

import (
	"math"

	"github.com/shiva/routeopt/internal/model"
)

const (
	// carbonKgPerKm is the emissions factor applied to physical distance.
	carbonKgPerKm = 0.12
	// sharpenExponent controls how aggressively a dominant weight is
	// separated from the others before the fitness sum is computed.
	sharpenExponent = 2.5
	// dominantAmplification boosts an already-dominant (>=50%) weight
	// again after sharpening, so the search reliably beats a baseline tour
	// that ignored priorities entirely.
	dominantAmplification = 1.5
	// defaultDiversityPenalty is used when the caller does not specify one.
	defaultDiversityPenalty = 0.15
)

// Breakdown is the raw, unweighted cost of a tour before any priority
// scaling is applied.
type Breakdown struct {
	TimeS      float64
	DistanceKm float64
	Cost       float64
	CarbonKg   float64
}

// Evaluate scores tour against the given weights. An invalid tour scores
// model.Inf rather than returning an error — the IAFSA engine and baseline
// comparison never need to special-case a malformed candidate.
//
// If referenceTour is non-nil, a diversity term nudges the score away from
// tours that look identical to the reference, weakening as any one priority
// becomes dominant (a sharply dominant priority should win on its own
// merits, not be second-guessed for looking too similar to the seed).
func Evaluate(tour model.Tour, timeMatrix, distanceMatrix model.Matrix, weights model.Weights, fuelCostPerKm float64, referenceTour model.Tour, diversityPenalty float64) float64 {
	n := timeMatrix.Size()
	if !tour.Valid(n) {
		return model.Inf
	}
	if diversityPenalty <= 0 {
		diversityPenalty = defaultDiversityPenalty
	}

	b := Compute(tour, timeMatrix, distanceMatrix, fuelCostPerKm)
	if b.TimeS == model.Inf || b.DistanceKm == model.Inf {
		return model.Inf
	}

	wt, wc, wk := sharpenedWeights(weights)
	base := wt*b.TimeS + wc*b.Cost + wk*b.CarbonKg

	if referenceTour == nil {
		return base
	}

	similarity := Diversity(tour, referenceTour)
	penalty := diversityPenalty
	n0 := weights.Normalize()
	maxRaw := math.Max(n0.Time, math.Max(n0.Cost, n0.Carbon))
	switch {
	case maxRaw > 0.8:
		penalty *= 0.3
	case maxRaw > 0.6:
		penalty *= 0.5
	}

	return base * (1 + penalty*similarity)
}

// Compute returns the unweighted cost breakdown for a tour without
// validating it — callers that already know the tour is valid (e.g. the
// baseline, which is constructed correctly by definition) can skip the
// validation Evaluate performs.
func Compute(tour model.Tour, timeMatrix, distanceMatrix model.Matrix, fuelCostPerKm float64) Breakdown {
	var totalTimeS, totalDistanceM float64
	for i := 0; i < len(tour)-1; i++ {
		from, to := tour[i], tour[i+1]
		t := timeMatrix[from][to]
		d := distanceMatrix[from][to]
		if t == model.Inf || d == model.Inf {
			return Breakdown{TimeS: model.Inf, DistanceKm: model.Inf, Cost: model.Inf, CarbonKg: model.Inf}
		}
		totalTimeS += t
		totalDistanceM += d
	}

	distanceKm := totalDistanceM / 1000.0
	return Breakdown{
		TimeS:      totalTimeS,
		DistanceKm: distanceKm,
		Cost:       distanceKm * fuelCostPerKm,
		CarbonKg:   distanceKm * carbonKgPerKm,
	}
}

// sharpenedWeights normalizes weights to proportions, raises each to
// sharpenExponent, renormalizes, then amplifies a >=50% dominant component
// by dominantAmplification and renormalizes once more.
func sharpenedWeights(weights model.Weights) (wt, wc, wk float64) {
	n := weights.Normalize()

	wt = math.Pow(n.Time, sharpenExponent)
	wc = math.Pow(n.Cost, sharpenExponent)
	wk = math.Pow(n.Carbon, sharpenExponent)

	sum := wt + wc + wk
	if sum <= 0 {
		return 1.0 / 3, 1.0 / 3, 1.0 / 3
	}
	wt, wc, wk = wt/sum, wc/sum, wk/sum

	if name, _, ok := weights.Dominant(); ok {
		switch name {
		case "time":
			wt *= dominantAmplification
		case "cost":
			wc *= dominantAmplification
		case "carbon":
			wk *= dominantAmplification
		}
		total := wt + wc + wk
		wt, wc, wk = wt/total, wc/total, wk/total
	}

	return wt, wc, wk
}

// Diversity returns the fraction of interior positions where a and b agree.
// Tours of unequal length compare only over their shared prefix.
func Diversity(a, b model.Tour) float64 {
	if len(a) <= 2 || len(b) <= 2 {
		return 0
	}
	limit := len(a)
	if len(b) < limit {
		limit = len(b)
	}
	maxPossible := limit - 2
	if maxPossible <= 0 {
		return 0
	}

	matches := 0
	for i := 1; i < limit-1; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(maxPossible)
}
