package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/shiva/routeopt/internal/model"
	"github.com/shiva/routeopt/internal/orchestrator"
)

// OptimizeHandler handles last-mile route optimization HTTP requests.
type OptimizeHandler struct {
	orch *orchestrator.Orchestrator
}

// NewOptimizeHandler creates a handler wired to the given orchestrator.
func NewOptimizeHandler(orch *orchestrator.Orchestrator) *OptimizeHandler {
	return &OptimizeHandler{orch: orch}
}

type optimizeRequestBody struct {
	StartPoint    string      `json:"startPoint"`
	Destinations  []string    `json:"destinations"`
	Weights       weightsBody `json:"weights"`
	FuelCostPerKm float64     `json:"fuelCostPerKm"`
	Comparison    []string    `json:"comparison"`
	Seed          int64       `json:"seed"`
}

type weightsBody struct {
	Time   float64 `json:"time"`
	Cost   float64 `json:"cost"`
	Carbon float64 `json:"carbon"`
}

// Optimize handles POST /api/v1/optimize/last-mile
//
// Accepts a start point, a list of destination addresses, objective
// weights, and which algorithms to compare, then returns a per-algorithm
// route with its time/cost/carbon breakdown.
//
// Response codes:
//
//	200 — optimization succeeded (for at least one requested algorithm)
//	400 — malformed body or invalid destinations
//	500 — matrices could not be built, or every algorithm failed
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var body optimizeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "invalid_body",
			"message": "Request body must be valid JSON.",
		})
		return
	}

	req := orchestrator.Request{
		StartPoint:   body.StartPoint,
		Destinations: body.Destinations,
		Weights: model.Weights{
			Time:   body.Weights.Time,
			Cost:   body.Weights.Cost,
			Carbon: body.Weights.Carbon,
		},
		FuelCostPerKm: body.FuelCostPerKm,
		Comparison:    body.Comparison,
		Seed:          body.Seed,
	}

	resp, err := h.orch.Optimize(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":   "invalid_input",
				"message": err.Error(),
			})
		case errors.Is(err, orchestrator.ErrMatrixUnavailable):
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "matrix_unavailable",
				"message": "Failed to calculate distance/time matrices. Check that the addresses are geocodable.",
			})
		case errors.Is(err, orchestrator.ErrAllAlgorithmsFailed):
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "optimization_failed",
				"message": "Optimization failed for all selected algorithms.",
			})
		default:
			log.Printf("[handler] optimize error: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "internal_error",
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
