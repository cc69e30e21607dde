package source

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/headwaterlabs/catchcover/internal/geo"
	"github.com/headwaterlabs/catchcover/internal/metrics"
)

// ShapefileSpec identifies a shapefile set and how to read it.
type ShapefileSpec struct {
	// Path of the .shp member; the companion .dbf/.shx/.prj sit beside it.
	Path string
	// CRS identifier. When empty the .prj companion is read instead.
	CRS string
	// Rename maps DBF column names to attribute names. Columns absent from
	// the map are dropped; every named column must exist (SchemaError).
	Rename map[string]string
}

// Shapefile reads geometry and attributes as-is, preserving the source CRS.
func Shapefile(ctx context.Context, spec ShapefileSpec) (geo.Collection, error) {
	start := time.Now()
	col, err := shapefile(ctx, spec)
	metrics.ObserveSourceLoad("shapefile", err, time.Since(start).Seconds())
	return col, err
}

func shapefile(ctx context.Context, spec ShapefileSpec) (geo.Collection, error) {
	crs, err := shapefileCRS(spec)
	if err != nil {
		return geo.Collection{}, err
	}

	r, err := shp.Open(spec.Path)
	if err != nil {
		return geo.Collection{}, fmt.Errorf("shapefile %s: %v: %w", spec.Path, err, ErrUnavailable)
	}
	defer r.Close()

	fields := r.Fields()
	colIdx := make(map[string]int, len(spec.Rename))   // attr name -> dbf column
	colType := make(map[string]geo.FieldType, len(spec.Rename))
	for i, f := range fields {
		src := f.String()
		dst, ok := spec.Rename[src]
		if !ok {
			continue
		}
		colIdx[dst] = i
		colType[dst] = dbfFieldType(f)
	}
	schema := make(geo.Schema, len(spec.Rename))
	for src, dst := range spec.Rename {
		if _, ok := colIdx[dst]; !ok {
			return geo.Collection{}, &geo.SchemaError{Field: src, Reason: fmt.Sprintf("column missing from %s", spec.Path)}
		}
		schema[dst] = colType[dst]
	}

	out := geo.Collection{CRS: crs, Schema: schema}
	for r.Next() {
		if err := ctx.Err(); err != nil {
			return geo.Collection{}, err
		}
		row, shape := r.Shape()
		g, err := shapeToOrb(shape)
		if err != nil {
			return geo.Collection{}, fmt.Errorf("shapefile %s row %d: %w", spec.Path, row, err)
		}
		attrs := make(geo.Attrs, len(colIdx))
		for dst, i := range colIdx {
			raw := strings.TrimSpace(r.ReadAttribute(row, i))
			if raw == "" {
				continue
			}
			v, err := coerceDBFValue(raw, colType[dst])
			if err != nil {
				return geo.Collection{}, &geo.SchemaError{Field: dst, Reason: fmt.Sprintf("row %d: %v", row, err)}
			}
			attrs[dst] = v
		}
		out.Features = append(out.Features, geo.Feature{Geometry: g, Attrs: attrs})
	}
	if err := r.Err(); err != nil {
		return geo.Collection{}, fmt.Errorf("shapefile %s: %v: %w", spec.Path, err, ErrUnavailable)
	}
	return out, nil
}

func shapefileCRS(spec ShapefileSpec) (geo.CRS, error) {
	if spec.CRS != "" {
		return geo.ParseCRS(spec.CRS)
	}
	prj := strings.TrimSuffix(spec.Path, ".shp") + ".prj"
	wkt, err := os.ReadFile(prj)
	if err != nil {
		return geo.CRS{}, fmt.Errorf("shapefile %s: no CRS given and no .prj companion: %v: %w",
			spec.Path, err, geo.ErrUnsupportedCRS)
	}
	return geo.ParseCRS(strings.TrimSpace(string(wkt)))
}

func dbfFieldType(f shp.Field) geo.FieldType {
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			return geo.FieldInt
		}
		return geo.FieldFloat
	case 'F':
		return geo.FieldFloat
	default:
		return geo.FieldString
	}
}

func coerceDBFValue(raw string, t geo.FieldType) (any, error) {
	switch t {
	case geo.FieldInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse int %q: %w", raw, err)
		}
		return n, nil
	case geo.FieldFloat:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", raw, err)
		}
		return x, nil
	default:
		return raw, nil
	}
}

func shapeToOrb(s shp.Shape) (orb.Geometry, error) {
	switch t := s.(type) {
	case *shp.Point:
		return orb.Point{t.X, t.Y}, nil
	case *shp.Polygon:
		return partsToPolygonal(t.Parts, t.Points), nil
	default:
		return nil, fmt.Errorf("unsupported shape type %T", s)
	}
}

// partsToPolygonal assembles shapefile rings into polygons. Shapefiles wind
// outer rings clockwise and holes counter-clockwise; each outer ring starts
// a polygon and following holes attach to it.
func partsToPolygonal(parts []int32, points []shp.Point) orb.Geometry {
	var polys orb.MultiPolygon
	for i, startIdx := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		ring := make(orb.Ring, 0, end-int(startIdx))
		for _, p := range points[startIdx:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if signedArea(ring) <= 0 { // clockwise: outer
			polys = append(polys, orb.Polygon{ring})
		} else if len(polys) > 0 {
			polys[len(polys)-1] = append(polys[len(polys)-1], ring)
		} else {
			// hole with no preceding outer ring; treat as outer
			polys = append(polys, orb.Polygon{ring})
		}
	}
	if len(polys) == 1 {
		return polys[0]
	}
	return polys
}

func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}
