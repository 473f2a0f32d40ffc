// Package matrix builds full time and distance matrices over a depot and a
// list of destinations, batching calls to the external matrix service
// within its per-request origin/element limits and reconstructing a full
// (N+1)x(N+1) matrix with Inf placeholders for any address that failed to
// geocode.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/shiva/routeopt/internal/geocode"
	"github.com/shiva/routeopt/internal/mapsclient"
	"github.com/shiva/routeopt/internal/model"
	"github.com/shiva/routeopt/pkg/geo"
)

// ErrInsufficientCoordinates is returned when fewer than two addresses in
// the batch resolved; a matrix needs at least an origin and a destination.
var ErrInsufficientCoordinates = errors.New("matrix: fewer than two addresses resolved")

// Mode selects which element field a built matrix is populated from.
type Mode int

const (
	// ModeTime populates the matrix from duration.value (seconds).
	ModeTime Mode = iota
	// ModeDistance populates the matrix from distance.value (meters).
	ModeDistance
)

// Limits bounds a single distance-matrix request, mirroring the external
// provider's per-request caps.
type Limits struct {
	MaxOriginsPerRequest  int
	MaxElementsPerRequest int
}

// DefaultLimits matches the provider's documented ceilings.
var DefaultLimits = Limits{MaxOriginsPerRequest: 10, MaxElementsPerRequest: 100}

// Builder constructs time/distance matrices for a depot + destination list.
type Builder struct {
	client mapsclient.Client
	limits Limits
}

// New returns a Builder. Zero-value limits fall back to DefaultLimits.
func New(client mapsclient.Client, limits Limits) *Builder {
	if limits.MaxOriginsPerRequest <= 0 || limits.MaxElementsPerRequest <= 0 {
		limits = DefaultLimits
	}
	return &Builder{client: client, limits: limits}
}

// Result is a built matrix plus the addresses that failed to geocode.
type Result struct {
	Matrix     model.Matrix
	Unresolved []string
}

// resolved is the geocoded form of a location list: which original indices
// resolved, their coordinates, and which addresses did not.
type resolved struct {
	validIndices []int
	validPoints  []mapsclient.GeocodeResult
	unresolved   []string
	total        int
}

// resolveLocations geocodes locations once so both the time and distance
// matrix fetch can share the result without double-billing the geocoder.
func resolveLocations(ctx context.Context, geocoder *geocode.Geocoder, locations []string) (resolved, error) {
	geoRes, err := geocoder.Resolve(ctx, locations)
	if err != nil && len(geoRes.Coordinates) == 0 {
		return resolved{}, fmt.Errorf("matrix: %w", err)
	}

	r := resolved{total: len(locations), unresolved: geoRes.Unresolved}
	for i, c := range geoRes.Coordinates {
		if c.Resolved {
			r.validIndices = append(r.validIndices, i)
			r.validPoints = append(r.validPoints, mapsclient.GeocodeResult{Lat: c.Lat, Lng: c.Lng})
		}
	}
	if len(r.validPoints) < 2 {
		return resolved{}, ErrInsufficientCoordinates
	}
	return r, nil
}

// Build geocodes locations (depot first, then destinations, in that order)
// and fetches mode's matrix over the resolved subset, expanding the result
// back to a full matrix indexed exactly like locations. Rows/columns for
// unresolved locations are left at model.Inf.
func (b *Builder) Build(ctx context.Context, geocoder *geocode.Geocoder, locations []string, mode Mode) (Result, error) {
	r, err := resolveLocations(ctx, geocoder, locations)
	if err != nil {
		return Result{}, err
	}
	return b.buildFromResolved(ctx, r, mode)
}

func (b *Builder) buildFromResolved(ctx context.Context, r resolved, mode Mode) (Result, error) {
	compact, err := b.buildCompact(ctx, r.validPoints, mode)
	if err != nil {
		return Result{}, fmt.Errorf("matrix: %w", err)
	}
	full := expand(compact, r.validIndices, r.total)
	return Result{Matrix: full, Unresolved: r.unresolved}, nil
}

// buildCompact fetches the full matrix over a resolved point set, batched
// by the configured origin/element limits.
func (b *Builder) buildCompact(ctx context.Context, points []mapsclient.GeocodeResult, mode Mode) (model.Matrix, error) {
	n := len(points)
	out := model.NewMatrix(n)

	var errs error
	for originStart := 0; originStart < n; originStart += b.limits.MaxOriginsPerRequest {
		originEnd := min(originStart+b.limits.MaxOriginsPerRequest, n)
		origins := points[originStart:originEnd]
		numOrigins := len(origins)

		maxDestinations := b.limits.MaxElementsPerRequest / numOrigins
		if maxDestinations == 0 {
			maxDestinations = 1
		}

		for destStart := 0; destStart < n; destStart += maxDestinations {
			destEnd := min(destStart+maxDestinations, n)
			destinations := points[destStart:destEnd]

			elements, err := b.client.DistanceMatrix(ctx, origins, destinations)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("batch origins[%d:%d] destinations[%d:%d]: %w",
					originStart, originEnd, destStart, destEnd, err))
				continue
			}

			for i, row := range elements {
				for j, el := range row {
					if el.Status != mapsclient.OK {
						continue
					}
					if mode == ModeDistance {
						checkDistanceSanity(origins[i], destinations[j], el.DistanceMeters)
					}
					out[originStart+i][destStart+j] = valueOf(el, mode)
				}
			}
		}
	}

	if errs != nil && allInf(out) {
		return nil, errs
	}
	return out, nil
}

// checkDistanceSanity logs when a road-network distance comes back smaller
// than the great-circle distance between the same two points, which can
// only mean a unit mismatch or a malformed provider response.
func checkDistanceSanity(origin, destination mapsclient.GeocodeResult, roadMeters float64) {
	straightLineM := geo.HaversineM(
		geo.Location{Lat: origin.Lat, Lng: origin.Lng},
		geo.Location{Lat: destination.Lat, Lng: destination.Lng},
	)
	if roadMeters < straightLineM {
		log.Printf("[matrix] road distance %.0fm is shorter than straight-line %.0fm between (%.5f,%.5f) and (%.5f,%.5f)",
			roadMeters, straightLineM, origin.Lat, origin.Lng, destination.Lat, destination.Lng)
	}
}

func valueOf(el mapsclient.MatrixElement, mode Mode) float64 {
	if mode == ModeDistance {
		return el.DistanceMeters
	}
	return el.DurationS
}

func allInf(m model.Matrix) bool {
	for _, row := range m {
		for _, v := range row {
			if v != model.Inf {
				return false
			}
		}
	}
	return true
}

// expand maps a compact matrix over validIndices back into a full n×n
// matrix, leaving every row/column not in validIndices at model.Inf.
func expand(compact model.Matrix, validIndices []int, n int) model.Matrix {
	full := model.NewMatrix(n)
	for vi, oi := range validIndices {
		for vj, oj := range validIndices {
			full[oi][oj] = compact[vi][vj]
		}
	}
	return full
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// BuildBoth geocodes locations once, then fetches the time and distance
// matrices concurrently over the shared resolved set — the two external
// calls are independent and should not wait on each other.
func BuildBoth(ctx context.Context, b *Builder, geocoder *geocode.Geocoder, locations []string) (timeResult, distanceResult Result, err error) {
	r, err := resolveLocations(ctx, geocoder, locations)
	if err != nil {
		return Result{}, Result{}, err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, e := b.buildFromResolved(gctx, r, ModeTime)
		if e != nil {
			return e
		}
		timeResult = res
		return nil
	})
	g.Go(func() error {
		res, e := b.buildFromResolved(gctx, r, ModeDistance)
		if e != nil {
			return e
		}
		distanceResult = res
		return nil
	})

	if err = g.Wait(); err != nil {
		return Result{}, Result{}, err
	}
	return timeResult, distanceResult, nil
}
