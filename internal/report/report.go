// Package report aggregates intersection results into coverage tables.
package report

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb/planar"

	"github.com/headwaterlabs/catchcover/internal/geo"
)

// ErrZeroReferenceArea reports a reference row whose own area attribute is
// zero or negative: the percentage is undefined and the join fails rather
// than letting a division produce NaN.
var ErrZeroReferenceArea = errors.New("report: reference area is zero")

// Row is one line of the coverage table.
type Row struct {
	Key     string
	Name    string
	Percent float64
}

// AreaByKey computes per-feature planar area and sums it by the key
// attribute. Only keys present in the input appear; reintroducing the full
// key domain is Coverage's outer join, not this function. The collection CRS
// must be metric. Features missing the key attribute are rejected.
func AreaByKey(c geo.Collection, key string) (map[string]float64, error) {
	if !c.CRS.Metric() {
		return nil, fmt.Errorf("area by %q in %s: %w", key, c.CRS, geo.ErrNonMetricCRS)
	}
	sums := make(map[string]float64)
	for i, f := range c.Features {
		k, ok := f.String(key)
		if !ok {
			return nil, &geo.SchemaError{Field: key, Reason: fmt.Sprintf("feature %d has no group key", i)}
		}
		sums[k] += math.Abs(planar.Area(f.Geometry))
	}
	return sums, nil
}

// CoverageOptions names the reference collection's columns and converts its
// area attribute to the squared CRS unit the sums were computed in.
type CoverageOptions struct {
	KeyField  string
	NameField string
	AreaField string
	// AreaScale multiplies the reference area attribute into the unit of the
	// summed areas, e.g. 1e6 when the attribute is km² and sums are m².
	AreaScale float64
}

// Coverage outer-joins grouped area sums against the full key domain of the
// reference collection. Keys without a sum report zero explicitly; the
// percentage is 100 × round(sum/refArea, 3) with the reference's own area
// attribute as denominator. Rows come back sorted by key.
func Coverage(sums map[string]float64, reference geo.Collection, opts CoverageOptions) ([]Row, error) {
	scale := opts.AreaScale
	if scale == 0 {
		scale = 1
	}
	rows := make([]Row, 0, len(reference.Features))
	seen := make(map[string]bool, len(reference.Features))
	for i, f := range reference.Features {
		key, ok := f.String(opts.KeyField)
		if !ok {
			return nil, &geo.SchemaError{Field: opts.KeyField, Reason: fmt.Sprintf("reference feature %d has no key", i)}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		name, _ := f.String(opts.NameField)
		refArea, ok := f.Float(opts.AreaField)
		if !ok {
			return nil, &geo.SchemaError{Field: opts.AreaField, Reason: fmt.Sprintf("reference feature %d has no area", i)}
		}
		refArea *= scale
		if refArea <= 0 {
			return nil, fmt.Errorf("key %q: %w", key, ErrZeroReferenceArea)
		}
		sum := sums[key] // absent sums are zero, explicitly
		rows = append(rows, Row{
			Key:     key,
			Name:    name,
			Percent: 100 * roundTo(sum/refArea, 3),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows, nil
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// YearBinLabels lists the record-length classes in display order.
var YearBinLabels = []string{"1-10 years", "11-20 years", "21-50 years", ">50 years"}

// ClassifyYears bins a record length in years for display.
func ClassifyYears(years int) string {
	switch {
	case years <= 10:
		return "1-10 years"
	case years <= 20:
		return "11-20 years"
	case years <= 50:
		return "21-50 years"
	default:
		return ">50 years"
	}
}
