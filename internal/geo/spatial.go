package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/planar"
	"github.com/twpayne/go-geos"

	"github.com/headwaterlabs/catchcover/internal/metrics"
)

// bufferQuadSegs is the number of arc segments per buffer quadrant.
const bufferQuadSegs = 8

// Buffer expands every geometry of c outward by distance units of the
// collection's CRS. The CRS must be metric and the distance non-negative.
func Buffer(c Collection, distance float64) (Collection, error) {
	if !c.CRS.Metric() {
		return Collection{}, fmt.Errorf("buffer in %s: %w", c.CRS, ErrNonMetricCRS)
	}
	if distance < 0 {
		return Collection{}, fmt.Errorf("buffer: negative distance %g", distance)
	}
	done := metrics.TimeGeometryOp("buffer")
	defer done()

	out := Collection{CRS: c.CRS, Schema: c.Schema, Features: make([]Feature, len(c.Features))}
	for i, f := range c.Features {
		g, err := orbToGeos(f.Geometry)
		if err != nil {
			return Collection{}, fmt.Errorf("buffer feature %d: %w", i, err)
		}
		buffered := g.Buffer(distance, bufferQuadSegs)
		og, err := geosToOrb(buffered)
		buffered.Destroy()
		g.Destroy()
		if err != nil {
			return Collection{}, fmt.Errorf("buffer feature %d: %w", i, err)
		}
		out.Features[i] = Feature{Geometry: og, Attrs: f.cloneAttrs()}
	}
	return out, nil
}

// FilterWithin returns the subsequence of points whose geometry intersects
// any feature of regions, boundary included. Attribute sets and the relative
// order of points are preserved. Both collections must share a CRS.
func FilterWithin(points, regions Collection) (Collection, error) {
	if !points.CRS.Equal(regions.CRS) {
		return Collection{}, fmt.Errorf("filter within: points in %s, regions in %s: %w",
			points.CRS, regions.CRS, ErrCRSMismatch)
	}
	done := metrics.TimeGeometryOp("filter_within")
	defer done()

	regionGeoms := make([]*geos.Geom, 0, len(regions.Features))
	defer func() {
		for _, g := range regionGeoms {
			g.Destroy()
		}
	}()
	for i, f := range regions.Features {
		g, err := orbToGeos(f.Geometry)
		if err != nil {
			return Collection{}, fmt.Errorf("filter within: region %d: %w", i, err)
		}
		regionGeoms = append(regionGeoms, g)
	}

	out := Collection{CRS: points.CRS, Schema: points.Schema}
	for i, f := range points.Features {
		pg, err := orbToGeos(f.Geometry)
		if err != nil {
			return Collection{}, fmt.Errorf("filter within: point %d: %w", i, err)
		}
		hit := false
		for _, rg := range regionGeoms {
			if pg.Intersects(rg) {
				hit = true
				break
			}
		}
		pg.Destroy()
		if hit {
			out.Features = append(out.Features, Feature{Geometry: orb.Clone(f.Geometry), Attrs: f.cloneAttrs()})
		}
	}
	return out, nil
}

// Intersect returns one feature per overlapping pair of features from a and
// b: the pairwise geometric intersection, carrying the union of both parents'
// attributes with a winning key collisions. Non-overlapping pairs are
// omitted; a zero-feature result is a legitimate outcome, not an error. The
// result schema is the union of both schemas under the same collision rule.
func Intersect(a, b Collection) (Collection, error) {
	if !a.CRS.Equal(b.CRS) {
		return Collection{}, fmt.Errorf("intersect: %s vs %s: %w", a.CRS, b.CRS, ErrCRSMismatch)
	}
	done := metrics.TimeGeometryOp("intersect")
	defer done()

	schema := make(Schema, len(a.Schema)+len(b.Schema))
	for k, t := range b.Schema {
		schema[k] = t
	}
	for k, t := range a.Schema {
		schema[k] = t
	}
	out := Collection{CRS: a.CRS, Schema: schema}

	bGeoms := make([]*geos.Geom, 0, len(b.Features))
	defer func() {
		for _, g := range bGeoms {
			g.Destroy()
		}
	}()
	for i, f := range b.Features {
		g, err := orbToGeos(f.Geometry)
		if err != nil {
			return Collection{}, fmt.Errorf("intersect: right feature %d: %w", i, err)
		}
		bGeoms = append(bGeoms, g)
	}

	for i, fa := range a.Features {
		ag, err := orbToGeos(fa.Geometry)
		if err != nil {
			return Collection{}, fmt.Errorf("intersect: left feature %d: %w", i, err)
		}
		aBound := fa.Geometry.Bound()
		for j, fb := range b.Features {
			// cheap reject before handing the pair to GEOS
			if !aBound.Intersects(fb.Geometry.Bound()) {
				continue
			}
			inter := ag.Intersection(bGeoms[j])
			if inter.IsEmpty() {
				inter.Destroy()
				continue
			}
			og, err := geosToOrb(inter)
			inter.Destroy()
			if err != nil {
				ag.Destroy()
				return Collection{}, fmt.Errorf("intersect: pair (%d, %d): %w", i, j, err)
			}
			poly, ok := polygonalPart(og)
			if !ok {
				// boundary touch produced a point or line, not overlap
				continue
			}
			attrs := make(Attrs, len(fa.Attrs)+len(fb.Attrs))
			for k, v := range fb.Attrs {
				attrs[k] = v
			}
			for k, v := range fa.Attrs {
				attrs[k] = v
			}
			out.Features = append(out.Features, Feature{Geometry: poly, Attrs: attrs})
		}
		ag.Destroy()
	}
	return out, nil
}

// Area returns the planar area of a feature's geometry in squared CRS units.
// The collection CRS must be metric.
func Area(c Collection, i int) (float64, error) {
	if !c.CRS.Metric() {
		return 0, fmt.Errorf("area in %s: %w", c.CRS, ErrNonMetricCRS)
	}
	return planar.Area(c.Features[i].Geometry), nil
}

// polygonalPart extracts the polygonal component of an intersection result.
func polygonalPart(g orb.Geometry) (orb.Geometry, bool) {
	switch t := g.(type) {
	case orb.Polygon:
		return t, len(t) > 0
	case orb.MultiPolygon:
		return t, len(t) > 0
	case orb.Collection:
		var polys orb.MultiPolygon
		for _, member := range t {
			switch m := member.(type) {
			case orb.Polygon:
				polys = append(polys, m)
			case orb.MultiPolygon:
				polys = append(polys, m...)
			}
		}
		if len(polys) == 1 {
			return polys[0], true
		}
		return polys, len(polys) > 0
	default:
		return nil, false
	}
}

func orbToGeos(g orb.Geometry) (*geos.Geom, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	gg, err := geos.NewGeomFromWKB(data)
	if err != nil {
		return nil, fmt.Errorf("geos decode wkb: %w", err)
	}
	return gg, nil
}

func geosToOrb(g *geos.Geom) (orb.Geometry, error) {
	og, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	return og, nil
}
