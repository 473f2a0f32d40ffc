package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shiva/routeopt/internal/geocode"
	"github.com/shiva/routeopt/internal/iafsa"
	"github.com/shiva/routeopt/internal/mapsclient"
	"github.com/shiva/routeopt/internal/matrix"
	"github.com/shiva/routeopt/internal/orchestrator"
)

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
			delta := abs(o.Lat-d.Lat) + abs(o.Lng-d.Lng)
			out[i][j] = mapsclient.MatrixElement{Status: mapsclient.OK, DurationS: 100 * delta, DistanceMeters: 1000 * delta}
		}
	}
	return out, nil
}

func (f *fakeMapsClient) Directions(ctx context.Context, origin, destination mapsclient.GeocodeResult, waypoints []mapsclient.GeocodeResult) ([]string, error) {
	return nil, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func testHandler() *OptimizeHandler {
	fc := &fakeMapsClient{points: map[string]mapsclient.GeocodeResult{
		"depot": {Lat: 0, Lng: 0},
		"a":     {Lat: 1, Lng: 0},
		"b":     {Lat: 2, Lng: 0},
	}}
	g := geocode.New(fc, nil)
	orch := orchestrator.New(fc, g, orchestrator.Config{
		IAFSA:  iafsa.Config{BaseFishPopulation: 8, BaseIterations: 10, MaxRetries: 1},
		Limits: matrix.DefaultLimits,
	})
	return NewOptimizeHandler(orch)
}

func TestOptimize_ValidRequestReturns200(t *testing.T) {
	body := `{"startPoint":"depot","destinations":["a","b"],"weights":{"time":33,"cost":33,"carbon":34}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize/last-mile", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	testHandler().Optimize(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
	// The response is a flat object keyed by algorithm name.
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response did not decode: %v", err)
	}
	if _, ok := resp[orchestrator.CompareIAFSA]; !ok {
		t.Errorf("response missing iafsa result: %s", w.Body.String())
	}
}

func TestOptimize_MalformedJSONReturns400(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize/last-mile", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()

	testHandler().Optimize(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestOptimize_EmptyDestinationsReturns400(t *testing.T) {
	body := `{"startPoint":"depot","destinations":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize/last-mile", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	testHandler().Optimize(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
