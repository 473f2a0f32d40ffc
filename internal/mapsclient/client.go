// Package mapsclient is a small REST client for the Google Maps Geocoding,
// Distance Matrix, and Directions APIs. The rest of the optimizer depends
// only on the Client interface below so that tests can substitute a fake
// without hitting the network.
package mapsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shiva/routeopt/pkg/geo"
)

// DefaultBaseURL is the production Google Maps API host.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api"

// ElementStatus mirrors the per-element status field of a distance-matrix
// response row.
type ElementStatus string

// OK is the only status whose duration/distance value is usable; any other
// value leaves the corresponding matrix cell at model.Inf.
const OK ElementStatus = "OK"

// GeocodeResult is the first usable geometry from a geocode response.
type GeocodeResult struct {
	Lat, Lng float64
}

// MatrixElement is one (origin, destination) cell of a distance-matrix
// response.
type MatrixElement struct {
	Status         ElementStatus
	DurationS      float64
	DistanceMeters float64
}

// Client is the surface the optimizer depends on. The production
// implementation talks to Google Maps over HTTP; tests use an in-memory
// fake.
type Client interface {
	// Geocode resolves a single address string to a coordinate. ok is false
	// (with a nil error) when the API returned zero results — a normal,
	// non-fatal outcome the geocoder must tolerate.
	Geocode(ctx context.Context, address string) (result GeocodeResult, ok bool, err error)

	// DistanceMatrix returns a len(origins) x len(destinations) grid of
	// elements for the given coordinates.
	DistanceMatrix(ctx context.Context, origins, destinations []GeocodeResult) ([][]MatrixElement, error)

	// Directions returns the ordered step polylines (every step of every
	// leg) for a route that visits waypoints between origin and destination,
	// in the given order.
	Directions(ctx context.Context, origin, destination GeocodeResult, waypoints []GeocodeResult) ([]string, error)
}

// HTTPClient is the production Client backed by net/http.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New returns an HTTPClient configured with the given API key. baseURL
// overrides DefaultBaseURL when non-empty, which tests use to point at a
// local httptest.Server.
func New(apiKey, baseURL string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode implements Client.
func (c *HTTPClient) Geocode(ctx context.Context, address string) (GeocodeResult, bool, error) {
	u := fmt.Sprintf("%s/geocode/json?address=%s&key=%s", c.baseURL, url.QueryEscape(address), c.apiKey)

	var body geocodeResponse
	if err := c.getJSON(ctx, u, &body); err != nil {
		return GeocodeResult{}, false, fmt.Errorf("mapsclient: geocode %q: %w", address, err)
	}
	if len(body.Results) == 0 {
		return GeocodeResult{}, false, nil
	}
	loc := body.Results[0].Geometry.Location
	if !geo.ValidCoordinate(loc.Lat, loc.Lng) {
		return GeocodeResult{}, false, nil
	}
	return GeocodeResult{Lat: loc.Lat, Lng: loc.Lng}, true, nil
}

type distanceMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
}

// DistanceMatrix implements Client. Callers are responsible for keeping
// origins/destinations within the API's per-request limits; see
// internal/matrix for the batching policy.
func (c *HTTPClient) DistanceMatrix(ctx context.Context, origins, destinations []GeocodeResult) ([][]MatrixElement, error) {
	u := fmt.Sprintf("%s/distancematrix/json?origins=%s&destinations=%s&mode=driving&key=%s",
		c.baseURL, encodeLatLngList(origins), encodeLatLngList(destinations), c.apiKey)

	var body distanceMatrixResponse
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, fmt.Errorf("mapsclient: distance matrix: %w", err)
	}

	out := make([][]MatrixElement, len(body.Rows))
	for i, row := range body.Rows {
		out[i] = make([]MatrixElement, len(row.Elements))
		for j, el := range row.Elements {
			out[i][j] = MatrixElement{
				Status:         ElementStatus(el.Status),
				DurationS:      el.Duration.Value,
				DistanceMeters: el.Distance.Value,
			}
		}
	}
	return out, nil
}

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Steps []struct {
				Polyline struct {
					Points string `json:"points"`
				} `json:"polyline"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// Directions implements Client.
func (c *HTTPClient) Directions(ctx context.Context, origin, destination GeocodeResult, waypoints []GeocodeResult) ([]string, error) {
	u := fmt.Sprintf("%s/directions/json?origin=%s&destination=%s&mode=driving&key=%s",
		c.baseURL, encodeLatLng(origin), encodeLatLng(destination), c.apiKey)
	if len(waypoints) > 0 {
		u += "&waypoints=" + encodeLatLngList(waypoints)
	}

	var body directionsResponse
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, fmt.Errorf("mapsclient: directions: %w", err)
	}
	if len(body.Routes) == 0 {
		return nil, nil
	}

	polylines := make([]string, 0, len(body.Routes[0].Legs))
	for _, leg := range body.Routes[0].Legs {
		for _, step := range leg.Steps {
			polylines = append(polylines, step.Polyline.Points)
		}
	}
	return polylines, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, uri string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(b))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func encodeLatLng(g GeocodeResult) string {
	return strconv.FormatFloat(g.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(g.Lng, 'f', -1, 64)
}

func encodeLatLngList(points []GeocodeResult) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = encodeLatLng(p)
	}
	return url.QueryEscape(strings.Join(parts, "|"))
}
