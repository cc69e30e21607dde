package source

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/headwaterlabs/catchcover/internal/geo"
	"github.com/headwaterlabs/catchcover/internal/metrics"
)

// The provincial outline ships with the binary, playing the role of a
// reference dataset obtained through a dependency rather than a file the
// operator supplies. Generalized geometry, display and coarse clipping only.
//
//go:embed data/bc_boundary.geojson
var bcBoundaryGeoJSON []byte

// BoundarySchema is the attribute schema of the packaged boundary dataset.
var BoundarySchema = geo.Schema{"name": geo.FieldString}

// ProvinceBoundary returns the packaged provincial boundary polygon in WGS84.
func ProvinceBoundary(_ context.Context) (geo.Collection, error) {
	start := time.Now()
	col, err := provinceBoundary()
	metrics.ObserveSourceLoad("refdata", err, time.Since(start).Seconds())
	return col, err
}

func provinceBoundary() (geo.Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(bcBoundaryGeoJSON)
	if err != nil {
		return geo.Collection{}, fmt.Errorf("packaged boundary: %v: %w", err, ErrUnavailable)
	}
	out := geo.Collection{CRS: geo.WGS84, Schema: BoundarySchema}
	for _, f := range fc.Features {
		attrs := geo.Attrs{}
		if name, ok := f.Properties["name"].(string); ok {
			attrs["name"] = name
		}
		out.Features = append(out.Features, geo.Feature{Geometry: f.Geometry, Attrs: attrs})
	}
	return out, nil
}
