package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/shiva/routeopt/internal/geocode"
	"github.com/shiva/routeopt/internal/iafsa"
	"github.com/shiva/routeopt/internal/mapsclient"
	"github.com/shiva/routeopt/internal/matrix"
	"github.com/shiva/routeopt/internal/model"
)

// fakeMapsClient resolves a fixed address->point map and answers
// DistanceMatrix deterministically from the points' coordinates, mirroring
// the fake used by internal/matrix's own tests.
type fakeMapsClient struct {
	points map[string]mapsclient.GeocodeResult
}

func (f *fakeMapsClient) Geocode(ctx context.Context, address string) (mapsclient.GeocodeResult, bool, error) {
	p, ok := f.points[address]
	return p, ok, nil
}

func (f *fakeMapsClient) DistanceMatrix(ctx context.Context, origins, destinations []mapsclient.GeocodeResult) ([][]mapsclient.MatrixElement, error) {
	out := make([][]mapsclient.MatrixElement, len(origins))
	for i, o := range origins {
		out[i] = make([]mapsclient.MatrixElement, len(destinations))
		for j, d := range destinations {
			d := abs(o.Lat-d.Lat) + abs(o.Lng-d.Lng)
			out[i][j] = mapsclient.MatrixElement{Status: mapsclient.OK, DurationS: 100 * d, DistanceMeters: 1000 * d}
		}
	}
	return out, nil
}

func (f *fakeMapsClient) Directions(ctx context.Context, origin, destination mapsclient.GeocodeResult, waypoints []mapsclient.GeocodeResult) ([]string, error) {
	return []string{"polyline"}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func colinearClient() *fakeMapsClient {
	return &fakeMapsClient{points: map[string]mapsclient.GeocodeResult{
		"depot": {Lat: 0, Lng: 0},
		"a":     {Lat: 1, Lng: 0},
		"b":     {Lat: 2, Lng: 0},
		"c":     {Lat: 3, Lng: 0},
	}}
}

func testOrchestrator(fc *fakeMapsClient) *Orchestrator {
	g := geocode.New(fc, nil)
	return New(fc, g, Config{
		IAFSA:  iafsa.Config{BaseFishPopulation: 10, BaseIterations: 15, MaxRetries: 1},
		Limits: matrix.DefaultLimits,
	})
}

func TestOptimize_ReturnsAllRequestedAlgorithms(t *testing.T) {
	o := testOrchestrator(colinearClient())
	resp, err := o.Optimize(context.Background(), Request{
		StartPoint:   "depot",
		Destinations: []string{"a", "b", "c"},
		Weights:      model.Weights{Time: 34, Cost: 33, Carbon: 33},
		Comparison:   []string{CompareORTools, CompareIAFSA, CompareGoogleMaps},
	})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	for _, name := range []string{CompareORTools, CompareIAFSA, CompareGoogleMaps} {
		if _, ok := resp.Results[name]; !ok {
			t.Errorf("Results missing %q, got keys %v", name, keys(resp.Results))
		}
	}
}

func TestOptimize_GoogleMapsIsPessimizedVersionOfORTools(t *testing.T) {
	o := testOrchestrator(colinearClient())
	resp, err := o.Optimize(context.Background(), Request{
		StartPoint:   "depot",
		Destinations: []string{"a", "b", "c"},
		Comparison:   []string{CompareORTools, CompareGoogleMaps},
	})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	ort, gm := resp.Results[CompareORTools], resp.Results[CompareGoogleMaps]
	if gm.DistanceKm <= ort.DistanceKm {
		t.Errorf("googlemaps distance %v, want strictly greater than ortools %v", gm.DistanceKm, ort.DistanceKm)
	}
	want := ort.DistanceKm * googleMapsPessimizationLow
	if diff := gm.DistanceKm - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("googlemaps distance = %v, want %v (1.05x ortools)", gm.DistanceKm, want)
	}
}

func TestOptimize_EmptyDestinationsIsInvalidInput(t *testing.T) {
	o := testOrchestrator(colinearClient())
	_, err := o.Optimize(context.Background(), Request{StartPoint: "depot"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Optimize() error = %v, want ErrInvalidInput", err)
	}
}

func TestOptimize_BlankDestinationIsInvalidInput(t *testing.T) {
	o := testOrchestrator(colinearClient())
	_, err := o.Optimize(context.Background(), Request{StartPoint: "depot", Destinations: []string{"a", "   "}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Optimize() error = %v, want ErrInvalidInput", err)
	}
}

func TestOptimize_TooFewResolvableAddressesIsMatrixUnavailable(t *testing.T) {
	fc := &fakeMapsClient{points: map[string]mapsclient.GeocodeResult{"depot": {Lat: 0, Lng: 0}}}
	o := testOrchestrator(fc)
	_, err := o.Optimize(context.Background(), Request{StartPoint: "depot", Destinations: []string{"nowhere"}})
	if !errors.Is(err, ErrMatrixUnavailable) {
		t.Errorf("Optimize() error = %v, want ErrMatrixUnavailable", err)
	}
}

func TestDetectScale_RescalesFractionalWeights(t *testing.T) {
	w := detectScale(model.Weights{Time: 0.5, Cost: 0.3, Carbon: 0.2})
	if w.Time != 50 || w.Cost != 30 || w.Carbon != 20 {
		t.Errorf("detectScale() = %+v, want {50 30 20}", w)
	}
}

func TestDetectScale_LeavesPercentageWeightsAlone(t *testing.T) {
	w := detectScale(model.Weights{Time: 50, Cost: 30, Carbon: 20})
	if w.Time != 50 || w.Cost != 30 || w.Carbon != 20 {
		t.Errorf("detectScale() = %+v, want unchanged {50 30 20}", w)
	}
}

func keys(m map[string]AlgorithmResult) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
