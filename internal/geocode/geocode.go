// Package geocode resolves address strings to coordinates. A single
// unresolvable entry never aborts a batch — the geocoder preserves
// positional correspondence between input addresses and output coordinates
// and reports unresolved entries separately.
package geocode

import (
	"context"
	"errors"
	"fmt"

	"github.com/shiva/routeopt/internal/mapsclient"
	"github.com/shiva/routeopt/internal/model"
	"go.uber.org/multierr"
)

// ErrAllUnresolved is returned when not a single address in the batch could
// be geocoded; the matrix builder treats this as structurally unusable.
var ErrAllUnresolved = errors.New("geocode: no address in the batch resolved")

// Cache is the subset of the geocode result cache the geocoder depends on.
// internal/geocache implements it against Redis; tests may use a no-op.
type Cache interface {
	Get(ctx context.Context, address string) (model.Coordinate, bool)
	Set(ctx context.Context, address string, coord model.Coordinate)
}

// Geocoder resolves address batches via a mapsclient.Client, optionally
// fronted by a Cache.
type Geocoder struct {
	client mapsclient.Client
	cache  Cache
}

// New returns a Geocoder. cache may be nil, in which case every call hits
// the client.
func New(client mapsclient.Client, cache Cache) *Geocoder {
	return &Geocoder{client: client, cache: cache}
}

// Result is the geocoder's per-batch output: coordinates at the same
// indices as the input addresses (unresolved entries carry Resolved=false),
// plus the subset of original addresses that failed to resolve.
type Result struct {
	Coordinates []model.Coordinate
	Unresolved  []string
}

// Resolve geocodes addresses in order. A per-address failure is recorded in
// Unresolved and does not stop the remaining lookups; the accumulated
// per-address errors are joined (via multierr) and returned alongside a
// successful Result so callers can log them without treating the batch as
// failed. Resolve only returns a nil Result when every address failed.
func (g *Geocoder) Resolve(ctx context.Context, addresses []string) (Result, error) {
	res := Result{Coordinates: make([]model.Coordinate, len(addresses))}

	var errs error
	resolvedCount := 0
	for i, addr := range addresses {
		coord, err := g.resolveOne(ctx, addr)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("geocode %q: %w", addr, err))
		}
		res.Coordinates[i] = coord
		if coord.Resolved {
			resolvedCount++
		} else {
			res.Unresolved = append(res.Unresolved, addr)
		}
	}

	if resolvedCount == 0 {
		return Result{}, multierr.Append(errs, ErrAllUnresolved)
	}
	return res, errs
}

func (g *Geocoder) resolveOne(ctx context.Context, address string) (model.Coordinate, error) {
	if g.cache != nil {
		if coord, hit := g.cache.Get(ctx, address); hit {
			return coord, nil
		}
	}

	loc, ok, err := g.client.Geocode(ctx, address)
	if err != nil {
		return model.Coordinate{Resolved: false}, err
	}
	if !ok {
		coord := model.Coordinate{Resolved: false}
		if g.cache != nil {
			g.cache.Set(ctx, address, coord)
		}
		return coord, nil
	}

	coord := model.Coordinate{Lat: loc.Lat, Lng: loc.Lng, Resolved: true}
	if g.cache != nil {
		g.cache.Set(ctx, address, coord)
	}
	return coord, nil
}
