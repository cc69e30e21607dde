package workflow

import (
	"context"

	"github.com/headwaterlabs/catchcover/internal/cache"
	"github.com/headwaterlabs/catchcover/internal/geo"
	"github.com/headwaterlabs/catchcover/internal/report"
)

// StationsInput configures the station-mapping analysis.
type StationsInput struct {
	Inventory Source
	// Boundary is the basemap polygon the stations are drawn over.
	Boundary Source
	// ClassifyField is the derived record-length attribute to bin,
	// e.g. "dly_yrs" for the daily record.
	ClassifyField string
}

// BinCount is one record-length class and the number of stations in it.
type BinCount struct {
	Label string
	Count int
}

// StationsResult carries the point collection for the presentation layer and
// the record-length summary. Unclassified counts stations missing the binned
// attribute (incomplete period of record).
type StationsResult struct {
	Stations     geo.Collection
	Boundary     geo.Collection
	Bins         []BinCount
	Unclassified int
}

// Stations loads the station inventory and the basemap boundary through the
// cache and summarizes record lengths by class.
func Stations(ctx context.Context, cc *cache.CollectionCache, in StationsInput) (StationsResult, error) {
	stations, err := cc.Get(ctx, in.Inventory.Key, in.Inventory.Load)
	if err != nil {
		return StationsResult{}, err
	}
	boundary, err := cc.Get(ctx, in.Boundary.Key, in.Boundary.Load)
	if err != nil {
		return StationsResult{}, err
	}

	counts := make(map[string]int)
	unclassified := 0
	for _, f := range stations.Features {
		yrs, ok := f.Int(in.ClassifyField)
		if !ok {
			unclassified++
			continue
		}
		counts[report.ClassifyYears(yrs)]++
	}
	bins := make([]BinCount, 0, len(report.YearBinLabels))
	for _, label := range report.YearBinLabels {
		bins = append(bins, BinCount{Label: label, Count: counts[label]})
	}
	return StationsResult{Stations: stations, Boundary: boundary, Bins: bins, Unclassified: unclassified}, nil
}
