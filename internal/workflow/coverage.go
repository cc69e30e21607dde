package workflow

import (
	"context"

	"github.com/headwaterlabs/catchcover/internal/cache"
	"github.com/headwaterlabs/catchcover/internal/geo"
	"github.com/headwaterlabs/catchcover/internal/report"
)

// AlpineZoneCodes are the biogeoclimatic zone codes counted as alpine.
var AlpineZoneCodes = []string{"BAFA", "CMA", "IMA"}

// CoverageInput configures the alpine land-cover fraction analysis.
type CoverageInput struct {
	Catchments Source
	// ZoneLayers are the classification layers; they share one schema and
	// are concatenated after loading.
	ZoneLayers []Source
	// ZoneField is the zone-code attribute; ZoneCodes the subset to keep.
	ZoneField string
	ZoneCodes []string
	// TargetCRS must be metric; intersection areas are computed in it.
	TargetCRS geo.CRS
	// Reference join columns on the catchment collection. RefAreaScale
	// brings the area attribute into m², e.g. 1e6 for km².
	KeyField     string
	NameField    string
	RefAreaField string
	RefAreaScale float64
}

type CoverageResult struct {
	// Rows is the coverage table: every catchment appears, zero-overlap
	// catchments report 0.0 percent.
	Rows []report.Row
	// Intersections holds the clipped zone polygons for mapping.
	Intersections geo.Collection
}

// Coverage computes, per catchment, the share of its area covered by the
// selected zone codes.
func Coverage(ctx context.Context, cc *cache.CollectionCache, in CoverageInput) (CoverageResult, error) {
	catchments, err := cc.Get(ctx, in.Catchments.Key, in.Catchments.Load)
	if err != nil {
		return CoverageResult{}, err
	}

	layers := make([]geo.Collection, 0, len(in.ZoneLayers))
	for _, src := range in.ZoneLayers {
		layer, err := cc.Get(ctx, src.Key, src.Load)
		if err != nil {
			return CoverageResult{}, err
		}
		layers = append(layers, layer)
	}
	zones, err := geo.Concat(layers...)
	if err != nil {
		return CoverageResult{}, err
	}
	zones = selectByCode(zones, in.ZoneField, in.ZoneCodes)

	catchments, err = geo.Reproject(catchments, in.TargetCRS)
	if err != nil {
		return CoverageResult{}, err
	}
	zones, err = geo.Reproject(zones, in.TargetCRS)
	if err != nil {
		return CoverageResult{}, err
	}

	// catchment attributes win key collisions, so the group key survives
	clipped, err := geo.Intersect(catchments, zones)
	if err != nil {
		return CoverageResult{}, err
	}
	sums, err := report.AreaByKey(clipped, in.KeyField)
	if err != nil {
		return CoverageResult{}, err
	}
	rows, err := report.Coverage(sums, catchments, report.CoverageOptions{
		KeyField:  in.KeyField,
		NameField: in.NameField,
		AreaField: in.RefAreaField,
		AreaScale: in.RefAreaScale,
	})
	if err != nil {
		return CoverageResult{}, err
	}
	return CoverageResult{Rows: rows, Intersections: clipped}, nil
}

func selectByCode(c geo.Collection, field string, codes []string) geo.Collection {
	allowed := make(map[string]bool, len(codes))
	for _, code := range codes {
		allowed[code] = true
	}
	out := geo.Collection{CRS: c.CRS, Schema: c.Schema}
	for _, f := range c.Features {
		if code, ok := f.String(field); ok && allowed[code] {
			out.Features = append(out.Features, f)
		}
	}
	return out
}
