package source

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/headwaterlabs/catchcover/internal/geo"
	"github.com/headwaterlabs/catchcover/internal/metrics"
)

// GeoPackageSpec identifies one layer table of a multi-layer GeoPackage and
// the attribute columns to read from it.
type GeoPackageSpec struct {
	Path string
	// Layer is the gpkg_contents table name.
	Layer string
	// Rename maps layer columns to attribute names, as in ShapefileSpec.
	Rename map[string]string
	// Types declares the attribute type per renamed column.
	Types geo.Schema
}

// GeoPackageLayer reads one named layer. Callers wanting several layers load
// each independently and concatenate downstream with geo.Concat.
func GeoPackageLayer(ctx context.Context, spec GeoPackageSpec) (geo.Collection, error) {
	start := time.Now()
	col, err := geoPackageLayer(ctx, spec)
	metrics.ObserveSourceLoad("geopackage", err, time.Since(start).Seconds())
	return col, err
}

func geoPackageLayer(ctx context.Context, spec GeoPackageSpec) (geo.Collection, error) {
	if _, err := os.Stat(spec.Path); err != nil {
		return geo.Collection{}, fmt.Errorf("geopackage %s: %v: %w", spec.Path, err, ErrUnavailable)
	}
	db, err := sql.Open("sqlite3", "file:"+spec.Path+"?mode=ro")
	if err != nil {
		return geo.Collection{}, fmt.Errorf("geopackage %s: %v: %w", spec.Path, err, ErrUnavailable)
	}
	defer db.Close()

	var geomCol string
	var srid int
	err = db.QueryRowContext(ctx,
		`SELECT column_name, srs_id FROM gpkg_geometry_columns WHERE table_name = ?`,
		spec.Layer).Scan(&geomCol, &srid)
	if err == sql.ErrNoRows {
		return geo.Collection{}, fmt.Errorf("geopackage %s: layer %q not registered: %w", spec.Path, spec.Layer, ErrUnavailable)
	}
	if err != nil {
		return geo.Collection{}, fmt.Errorf("geopackage %s: layer metadata: %v: %w", spec.Path, err, ErrUnavailable)
	}
	crs, err := geo.ParseCRS("EPSG:" + strconv.Itoa(srid))
	if err != nil {
		return geo.Collection{}, fmt.Errorf("geopackage %s layer %q: %w", spec.Path, spec.Layer, err)
	}

	schema := make(geo.Schema, len(spec.Rename))
	cols := make([]string, 0, len(spec.Rename))
	dsts := make([]string, 0, len(spec.Rename))
	for src, dst := range spec.Rename {
		t, ok := spec.Types[dst]
		if !ok {
			return geo.Collection{}, &geo.SchemaError{Field: dst, Reason: "no declared type for renamed column"}
		}
		schema[dst] = t
		cols = append(cols, quoteIdent(src))
		dsts = append(dsts, dst)
	}

	query := fmt.Sprintf(`SELECT %s%s FROM %s`, quoteIdent(geomCol), joinPrefixed(cols), quoteIdent(spec.Layer))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		// a named column missing from the table surfaces here
		return geo.Collection{}, &geo.SchemaError{Reason: fmt.Sprintf("layer %q: %v", spec.Layer, err)}
	}
	defer rows.Close()

	out := geo.Collection{CRS: crs, Schema: schema}
	for rows.Next() {
		var blob []byte
		vals := make([]any, len(dsts))
		ptrs := make([]any, 0, len(dsts)+1)
		ptrs = append(ptrs, &blob)
		for i := range vals {
			ptrs = append(ptrs, &vals[i])
		}
		if err := rows.Scan(ptrs...); err != nil {
			return geo.Collection{}, fmt.Errorf("geopackage %s layer %q: scan: %v: %w", spec.Path, spec.Layer, err, ErrUnavailable)
		}
		g, err := decodeGPKGGeometry(blob)
		if err != nil {
			return geo.Collection{}, fmt.Errorf("geopackage %s layer %q: %w", spec.Path, spec.Layer, err)
		}
		attrs := make(geo.Attrs, len(dsts))
		for i, dst := range dsts {
			if vals[i] == nil {
				continue
			}
			v, err := coerceSQLValue(vals[i], schema[dst])
			if err != nil {
				return geo.Collection{}, &geo.SchemaError{Field: dst, Reason: err.Error()}
			}
			attrs[dst] = v
		}
		out.Features = append(out.Features, geo.Feature{Geometry: g, Attrs: attrs})
	}
	if err := rows.Err(); err != nil {
		return geo.Collection{}, fmt.Errorf("geopackage %s layer %q: %v: %w", spec.Path, spec.Layer, err, ErrUnavailable)
	}
	return out, nil
}

// decodeGPKGGeometry strips the GeoPackage binary header (magic, flags,
// SRID, optional envelope) and decodes the WKB payload that follows.
func decodeGPKGGeometry(blob []byte) (orb.Geometry, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, fmt.Errorf("not a GeoPackage geometry blob")
	}
	flags := blob[3]
	envelopeSizes := [...]int{0, 32, 48, 48, 64}
	ind := int(flags>>1) & 0x07
	if ind >= len(envelopeSizes) {
		return nil, fmt.Errorf("invalid envelope indicator %d", ind)
	}
	headerLen := 8 + envelopeSizes[ind]
	if len(blob) < headerLen {
		return nil, fmt.Errorf("truncated geometry header")
	}
	return wkb.Unmarshal(blob[headerLen:])
}

func coerceSQLValue(v any, t geo.FieldType) (any, error) {
	switch t {
	case geo.FieldInt:
		switch n := v.(type) {
		case int64:
			return int(n), nil
		case float64:
			return int(n), nil
		}
	case geo.FieldFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
	case geo.FieldString:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
	}
	return nil, fmt.Errorf("value %v (%T) does not match declared type %s", v, v, t)
}

func quoteIdent(s string) string {
	return `"` + s + `"`
}

func joinPrefixed(cols []string) string {
	var out string
	for _, c := range cols {
		out += ", " + c
	}
	return out
}
