package fitness

import (
	"math"
	"testing"

	"github.com/shiva/routeopt/internal/model"
)

func symmetricMatrix() model.Matrix {
	return model.Matrix{
		{0, 10, 20, 30},
		{10, 0, 15, 25},
		{20, 15, 0, 18},
		{30, 25, 18, 0},
	}
}

func TestEvaluate_InvalidTourIsInf(t *testing.T) {
	tm := symmetricMatrix()
	dm := symmetricMatrix()
	bad := model.Tour{0, 1, 1, 0} // repeats index 1, misses 2 and 3
	got := Evaluate(bad, tm, dm, model.Weights{Time: 1}, 0.15, nil, 0)
	if got != model.Inf {
		t.Errorf("Evaluate(invalid tour) = %v, want +Inf", got)
	}
}

func TestEvaluate_WeightNormalizationIdempotence(t *testing.T) {
	tm := symmetricMatrix()
	dm := symmetricMatrix()
	tour := model.Tour{0, 1, 2, 3, 0}

	base := Evaluate(tour, tm, dm, model.Weights{Time: 20, Cost: 50, Carbon: 30}, 0.15, nil, 0)
	for _, c := range []float64{0.01, 1, 100, 1000} {
		scaled := Evaluate(tour, tm, dm, model.Weights{Time: 20 * c, Cost: 50 * c, Carbon: 30 * c}, 0.15, nil, 0)
		if math.Abs(base-scaled) > 1e-9 {
			t.Errorf("Evaluate with scale %v = %v, want %v (scale-invariant)", c, scaled, base)
		}
	}
}

func TestEvaluate_ReversalSymmetryUnderSymmetricMatrices(t *testing.T) {
	tm := symmetricMatrix()
	dm := symmetricMatrix()
	tour := model.Tour{0, 1, 2, 3, 0}
	reversed := model.Tour{0, 3, 2, 1, 0}

	// All weight on cost, which derives purely from the (symmetric) distance
	// matrix, so a tour and its reversal must score identically.
	w := model.Weights{Cost: 1}
	f1 := Evaluate(tour, tm, dm, w, 0.15, nil, 0)
	f2 := Evaluate(reversed, tm, dm, w, 0.15, nil, 0)
	if math.Abs(f1-f2) > 1e-9 {
		t.Errorf("Evaluate(tour) = %v, Evaluate(reversed) = %v, want equal", f1, f2)
	}
}

func TestEvaluate_DominantPrioritySharpensTowardThatMetric(t *testing.T) {
	tm := symmetricMatrix()
	dm := symmetricMatrix()
	tour := model.Tour{0, 1, 2, 3, 0}

	costDominant := Evaluate(tour, tm, dm, model.Weights{Time: 5, Cost: 95, Carbon: 0}, 1.0, nil, 0)
	costSplit := Evaluate(tour, tm, dm, model.Weights{Time: 40, Cost: 60, Carbon: 0}, 1.0, nil, 0)

	b := Compute(tour, tm, dm, 1.0)
	// As the cost weight grows from 60 to 95, the fitness should move
	// toward the pure-cost figure, not stay anchored near the split value.
	if math.Abs(costDominant-b.Cost) >= math.Abs(costSplit-b.Cost) {
		t.Errorf("sharpening did not pull fitness toward Cost=%v: split=%v dominant=%v", b.Cost, costSplit, costDominant)
	}
}

func TestEvaluate_DiversityPenaltyWeakensForDominantWeights(t *testing.T) {
	tm := symmetricMatrix()
	dm := symmetricMatrix()
	tour := model.Tour{0, 1, 2, 3, 0}
	reference := tour.Clone() // identical to itself: similarity = 1

	balanced := Evaluate(tour, tm, dm, model.Weights{Time: 34, Cost: 33, Carbon: 33}, 0.15, reference, 0.15)
	dominant := Evaluate(tour, tm, dm, model.Weights{Time: 95, Cost: 3, Carbon: 2}, 0.15, reference, 0.15)

	noPenaltyBalanced := Evaluate(tour, tm, dm, model.Weights{Time: 34, Cost: 33, Carbon: 33}, 0.15, nil, 0.15)
	noPenaltyDominant := Evaluate(tour, tm, dm, model.Weights{Time: 95, Cost: 3, Carbon: 2}, 0.15, nil, 0.15)

	balancedRatio := balanced / noPenaltyBalanced
	dominantRatio := dominant / noPenaltyDominant
	if dominantRatio >= balancedRatio {
		t.Errorf("diversity penalty ratio under dominant weight (%v) should be smaller than under balanced weight (%v)", dominantRatio, balancedRatio)
	}
}

func TestDiversity_IdenticalToursScoreOne(t *testing.T) {
	a := model.Tour{0, 1, 2, 3, 0}
	if got := Diversity(a, a.Clone()); got != 1.0 {
		t.Errorf("Diversity(identical) = %v, want 1.0", got)
	}
}

func TestDiversity_FullyDisjointInteriorScoresZero(t *testing.T) {
	a := model.Tour{0, 1, 2, 3, 0}
	b := model.Tour{0, 3, 1, 2, 0}
	got := Diversity(a, b)
	if got != 0 {
		t.Errorf("Diversity(disjoint) = %v, want 0", got)
	}
}

func TestCompute_SingleDestination(t *testing.T) {
	tm := model.Matrix{{0, 600}, {600, 0}}
	dm := model.Matrix{{0, 5000}, {5000, 0}}
	tour := model.Tour{0, 1, 0}

	b := Compute(tour, tm, dm, 0.15)
	if b.TimeS != 1200 {
		t.Errorf("TimeS = %v, want 1200", b.TimeS)
	}
	if b.DistanceKm != 10 {
		t.Errorf("DistanceKm = %v, want 10", b.DistanceKm)
	}
}
