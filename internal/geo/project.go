package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-proj/v10"
)

// Reproject re-expresses every geometry of c in target. Attributes are
// untouched and the input collection is never mutated. Both CRS must resolve
// through PROJ, otherwise ErrUnsupportedCRS.
func Reproject(c Collection, target CRS) (Collection, error) {
	if c.CRS.IsZero() || target.IsZero() {
		return Collection{}, fmt.Errorf("reproject: missing CRS: %w", ErrUnsupportedCRS)
	}
	if c.CRS.Equal(target) {
		return c.Clone(), nil
	}

	pj, err := proj.NewCRSToCRSTransformation(c.CRS.definition(), target.definition(), nil)
	if err != nil {
		return Collection{}, fmt.Errorf("reproject %s -> %s: %v: %w", c.CRS, target, err, ErrUnsupportedCRS)
	}

	tr := func(x, y float64) (float64, float64, error) {
		out, err := pj.Forward(proj.NewCoord(x, y, 0, 0))
		if err != nil {
			return 0, 0, fmt.Errorf("transform (%g, %g): %w", x, y, err)
		}
		return out.X(), out.Y(), nil
	}

	out := Collection{CRS: target, Schema: c.Schema, Features: make([]Feature, len(c.Features))}
	for i, f := range c.Features {
		g, err := transformGeometry(f.Geometry, tr)
		if err != nil {
			return Collection{}, fmt.Errorf("reproject feature %d: %w", i, err)
		}
		out.Features[i] = Feature{Geometry: g, Attrs: f.cloneAttrs()}
	}
	return out, nil
}

type coordFunc func(x, y float64) (float64, float64, error)

func transformGeometry(g orb.Geometry, tr coordFunc) (orb.Geometry, error) {
	switch t := g.(type) {
	case orb.Point:
		x, y, err := tr(t[0], t[1])
		if err != nil {
			return nil, err
		}
		return orb.Point{x, y}, nil
	case orb.MultiPoint:
		out := make(orb.MultiPoint, len(t))
		for i, p := range t {
			x, y, err := tr(p[0], p[1])
			if err != nil {
				return nil, err
			}
			out[i] = orb.Point{x, y}
		}
		return out, nil
	case orb.Polygon:
		out, err := transformPolygon(t, tr)
		if err != nil {
			return nil, err
		}
		return out, nil
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(t))
		for i, p := range t {
			tp, err := transformPolygon(p, tr)
			if err != nil {
				return nil, err
			}
			out[i] = tp
		}
		return out, nil
	default:
		return nil, fmt.Errorf("reproject: unsupported geometry type %T", g)
	}
}

func transformPolygon(p orb.Polygon, tr coordFunc) (orb.Polygon, error) {
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		r := make(orb.Ring, len(ring))
		for j, pt := range ring {
			x, y, err := tr(pt[0], pt[1])
			if err != nil {
				return nil, err
			}
			r[j] = orb.Point{x, y}
		}
		out[i] = r
	}
	return out, nil
}
