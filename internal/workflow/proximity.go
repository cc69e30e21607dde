package workflow

import (
	"context"

	"github.com/headwaterlabs/catchcover/internal/cache"
	"github.com/headwaterlabs/catchcover/internal/geo"
)

// ProximityInput configures the point-in-polygon search for stations near a
// catchment boundary.
type ProximityInput struct {
	Stations   Source
	Catchments Source
	// TargetCRS must be metric; stations and catchments are both brought
	// into it before buffering.
	TargetCRS geo.CRS
	// BufferMeters expands the catchment outward before the membership test.
	BufferMeters float64
}

type ProximityResult struct {
	// Stations inside or on the boundary of any buffered catchment, in
	// inventory order, attributes intact.
	Stations geo.Collection
	// Buffered catchment polygons, for the map the presentation layer draws.
	Buffered geo.Collection
}

// Proximity finds the stations within BufferMeters of any catchment.
func Proximity(ctx context.Context, cc *cache.CollectionCache, in ProximityInput) (ProximityResult, error) {
	stations, err := cc.Get(ctx, in.Stations.Key, in.Stations.Load)
	if err != nil {
		return ProximityResult{}, err
	}
	catchments, err := cc.Get(ctx, in.Catchments.Key, in.Catchments.Load)
	if err != nil {
		return ProximityResult{}, err
	}

	stations, err = geo.Reproject(stations, in.TargetCRS)
	if err != nil {
		return ProximityResult{}, err
	}
	catchments, err = geo.Reproject(catchments, in.TargetCRS)
	if err != nil {
		return ProximityResult{}, err
	}

	buffered, err := geo.Buffer(catchments, in.BufferMeters)
	if err != nil {
		return ProximityResult{}, err
	}
	near, err := geo.FilterWithin(stations, buffered)
	if err != nil {
		return ProximityResult{}, err
	}
	return ProximityResult{Stations: near, Buffered: buffered}, nil
}
