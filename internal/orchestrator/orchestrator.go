// Package orchestrator assembles the optimizer pipeline: validate the
// request, normalize weights, build matrices, run the baseline and IAFSA
// solvers, and compute the per-algorithm results the HTTP handler returns.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shiva/routeopt/internal/fitness"
	"github.com/shiva/routeopt/internal/geocode"
	"github.com/shiva/routeopt/internal/iafsa"
	"github.com/shiva/routeopt/internal/mapsclient"
	"github.com/shiva/routeopt/internal/matrix"
	"github.com/shiva/routeopt/internal/model"
	"github.com/shiva/routeopt/internal/tsp"
	"github.com/shiva/routeopt/pkg/rng"
)

// ErrInvalidInput marks a caller error: empty or malformed request fields.
// The handler maps it to 400.
var ErrInvalidInput = errors.New("orchestrator: invalid input")

// ErrMatrixUnavailable marks a structurally fatal matrix failure (fewer
// than two addresses resolved, or unrecoverable batch errors). The handler
// maps it to 500.
var ErrMatrixUnavailable = errors.New("orchestrator: distance/time matrix unavailable")

// ErrAllAlgorithmsFailed means neither the baseline nor IAFSA produced a
// usable tour. The handler maps it to 500.
var ErrAllAlgorithmsFailed = errors.New("orchestrator: no algorithm produced a route")

const (
	// googleMapsPessimizationLow/High bound the placeholder comparison
	// this system fabricates when a third-party routing figure is
	// requested but never actually queried — see 4.7.
	googleMapsPessimizationLow  = 1.05
	googleMapsPessimizationHigh = 1.10

	defaultFuelCostPerKm = 0.15
	defaultStartPoint    = "Bengaluru, Karnataka, India"
)

// Comparison names accepted in the request's `comparison` list.
const (
	CompareORTools    = "ortools"
	CompareIAFSA      = "iafsa"
	CompareGoogleMaps = "googlemaps"
)

// Request is the orchestrator's input, already decoded from the HTTP body.
type Request struct {
	StartPoint    string
	Destinations  []string
	Weights       model.Weights
	FuelCostPerKm float64
	Comparison    []string
	Seed          int64
}

// AlgorithmResult is the per-algorithm output shape returned to the caller.
type AlgorithmResult = model.OptimizationResult

// Response is keyed by algorithm name ("ortools", "iafsa", "googlemaps").
// It marshals flat, with "unresolved" appearing as a sibling key only when
// non-empty, so the wire shape stays the per-algorithm object the caller
// expects even though the unresolved-address warning rides alongside it.
type Response struct {
	Results    map[string]AlgorithmResult `json:"-"`
	Unresolved []string                   `json:"-"`
}

// MarshalJSON flattens Results into the top-level object and adds
// "unresolved" as a sibling key when there were any unresolved addresses.
func (r Response) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Results)+1)
	for name, result := range r.Results {
		out[name] = result
	}
	if len(r.Unresolved) > 0 {
		out["unresolved"] = r.Unresolved
	}
	return json.Marshal(out)
}

// Config bounds the IAFSA resources and the request-wide deadline.
type Config struct {
	IAFSA    iafsa.Config
	Deadline time.Duration
	Limits   matrix.Limits
}

// Orchestrator wires the geocoder, matrix builder, and solvers together.
type Orchestrator struct {
	geocoder *geocode.Geocoder
	builder  *matrix.Builder
	client   mapsclient.Client
	cfg      Config
}

// New returns an Orchestrator.
func New(client mapsclient.Client, geocoder *geocode.Geocoder, cfg Config) *Orchestrator {
	return &Orchestrator{
		geocoder: geocoder,
		builder:  matrix.New(client, cfg.Limits),
		client:   client,
		cfg:      cfg,
	}
}

// Optimize runs the full pipeline for one request.
func (o *Orchestrator) Optimize(ctx context.Context, req Request) (Response, error) {
	if err := validate(&req); err != nil {
		return Response{}, err
	}

	if o.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Deadline)
		defer cancel()
	}

	locations := append([]string{req.StartPoint}, req.Destinations...)

	timeResult, distanceResult, err := matrix.BuildBoth(ctx, o.builder, o.geocoder, locations)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMatrixUnavailable, err)
	}

	baseline := tsp.Baseline(timeResult.Matrix)

	results := make(map[string]AlgorithmResult)

	if baseline != nil && wants(req.Comparison, CompareORTools) {
		results[CompareORTools] = o.buildResult(ctx, baseline, timeResult.Matrix, distanceResult.Matrix, req, locations)
	}

	// IAFSA is always computed: it is the primary result and the baseline
	// comparison it is measured against.
	var iafsaTour model.Tour
	if baseline != nil {
		engine := iafsa.New(o.cfg.IAFSA)
		r := rng.New(req.Seed)
		iafsaResult := engine.Optimize(ctx, r, timeResult.Matrix, distanceResult.Matrix, req.Weights, req.FuelCostPerKm, baseline)
		if iafsaResult.Best != nil {
			iafsaTour = iafsaResult.Best
		} else {
			iafsaTour = baseline
		}
		results[CompareIAFSA] = o.buildResult(ctx, iafsaTour, timeResult.Matrix, distanceResult.Matrix, req, locations)
	}

	if wants(req.Comparison, CompareGoogleMaps) {
		if gm, ok := fabricateGoogleMapsComparison(results); ok {
			results[CompareGoogleMaps] = gm
		}
	}

	if len(results) == 0 {
		return Response{}, ErrAllAlgorithmsFailed
	}

	return Response{Results: results, Unresolved: dedupe(append(timeResult.Unresolved, distanceResult.Unresolved...))}, nil
}

func validate(req *Request) error {
	if req.StartPoint == "" {
		req.StartPoint = defaultStartPoint
	}
	if len(req.Destinations) == 0 {
		return fmt.Errorf("%w: destinations must be non-empty", ErrInvalidInput)
	}
	for _, d := range req.Destinations {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("%w: destinations must not contain empty strings", ErrInvalidInput)
		}
	}
	if req.Weights.Time < 0 || req.Weights.Cost < 0 || req.Weights.Carbon < 0 {
		return fmt.Errorf("%w: weights must be nonnegative", ErrInvalidInput)
	}
	req.Weights = detectScale(req.Weights)
	if req.FuelCostPerKm <= 0 {
		req.FuelCostPerKm = defaultFuelCostPerKm
	}
	if len(req.Comparison) == 0 {
		req.Comparison = []string{CompareORTools, CompareIAFSA, CompareGoogleMaps}
	}
	return nil
}

// detectScale rescales a [0,1]-scale weight triple up to [0,100] so the
// rest of the pipeline always reasons in percentage-like magnitudes; a
// weight already on the [0,100] scale passes through unchanged.
func detectScale(w model.Weights) model.Weights {
	max := w.Time
	if w.Cost > max {
		max = w.Cost
	}
	if w.Carbon > max {
		max = w.Carbon
	}
	if max > 0 && max <= 1 {
		return model.Weights{Time: w.Time * 100, Cost: w.Cost * 100, Carbon: w.Carbon * 100}
	}
	return w
}

func wants(comparison []string, name string) bool {
	for _, c := range comparison {
		if c == name {
			return true
		}
	}
	return false
}

func (o *Orchestrator) buildResult(ctx context.Context, t model.Tour, timeMatrix, distanceMatrix model.Matrix, req Request, locations []string) AlgorithmResult {
	breakdown := fitness.Compute(t, timeMatrix, distanceMatrix, req.FuelCostPerKm)

	result := AlgorithmResult{
		Route:      []int(t),
		DistanceKm: breakdown.DistanceKm,
		TimeS:      breakdown.TimeS,
		Cost:       breakdown.Cost,
		CarbonKg:   breakdown.CarbonKg,
	}

	if directions, err := o.fetchDirections(ctx, t, locations); err == nil {
		result.Directions = directions
	}
	return result
}

func (o *Orchestrator) fetchDirections(ctx context.Context, t model.Tour, locations []string) ([]string, error) {
	points := make([]mapsclient.GeocodeResult, len(locations))
	res, err := o.geocoder.Resolve(ctx, locations)
	if err != nil && len(res.Coordinates) == 0 {
		return nil, err
	}
	for i, c := range res.Coordinates {
		points[i] = mapsclient.GeocodeResult{Lat: c.Lat, Lng: c.Lng}
	}

	origin := points[t[0]]
	destination := points[t[len(t)-1]]
	waypoints := make([]mapsclient.GeocodeResult, 0, len(t)-2)
	for _, idx := range t[1 : len(t)-1] {
		waypoints = append(waypoints, points[idx])
	}
	return o.client.Directions(ctx, origin, destination, waypoints)
}

// fabricateGoogleMapsComparison is a UI-facing stand-in only: it derives a
// 5-10% pessimization of the best available computed result rather than
// calling a third routing provider. It carries no algorithmic weight and
// is never used as an optimization input.
func fabricateGoogleMapsComparison(results map[string]AlgorithmResult) (AlgorithmResult, bool) {
	base, factor := AlgorithmResult{}, 0.0
	switch {
	case resultPresent(results, CompareORTools):
		base, factor = results[CompareORTools], googleMapsPessimizationLow
	case resultPresent(results, CompareIAFSA):
		base, factor = results[CompareIAFSA], googleMapsPessimizationHigh
	default:
		return AlgorithmResult{}, false
	}
	return AlgorithmResult{
		Route:      base.Route,
		DistanceKm: base.DistanceKm * factor,
		TimeS:      base.TimeS * factor,
		Cost:       base.Cost * factor,
		CarbonKg:   base.CarbonKg * factor,
		Directions: base.Directions,
	}, true
}

func resultPresent(results map[string]AlgorithmResult, name string) bool {
	_, ok := results[name]
	return ok
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
