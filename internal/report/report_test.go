package report

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/headwaterlabs/catchcover/internal/geo"
)

// square returns an axis-aligned square polygon of the given side length
// with its lower-left corner at (x, y).
func square(x, y, side float64) orb.Polygon {
	return orb.Polygon{{
		{x, y}, {x + side, y}, {x + side, y + side}, {x, y + side}, {x, y},
	}}
}

func refCollection(features ...geo.Feature) geo.Collection {
	return geo.Collection{
		CRS: geo.BCAlbers,
		Schema: geo.Schema{
			"station_id": geo.FieldString,
			"name":       geo.FieldString,
			"area_km2":   geo.FieldFloat,
		},
		Features: features,
	}
}

func TestAreaByKey(t *testing.T) {
	c := geo.Collection{
		CRS:    geo.BCAlbers,
		Schema: geo.Schema{"station_id": geo.FieldString},
		Features: []geo.Feature{
			{Geometry: square(0, 0, 100), Attrs: geo.Attrs{"station_id": "A"}},
			{Geometry: square(500, 0, 50), Attrs: geo.Attrs{"station_id": "A"}},
			{Geometry: square(0, 500, 10), Attrs: geo.Attrs{"station_id": "B"}},
		},
	}
	sums, err := AreaByKey(c, "station_id")
	require.NoError(t, err)
	require.Len(t, sums, 2)
	require.InDelta(t, 12500.0, sums["A"], 1e-6)
	require.InDelta(t, 100.0, sums["B"], 1e-6)
}

func TestAreaByKey_NonMetricCRS(t *testing.T) {
	c := geo.Collection{
		CRS:    geo.WGS84,
		Schema: geo.Schema{"station_id": geo.FieldString},
		Features: []geo.Feature{
			{Geometry: square(0, 0, 1), Attrs: geo.Attrs{"station_id": "A"}},
		},
	}
	_, err := AreaByKey(c, "station_id")
	require.ErrorIs(t, err, geo.ErrNonMetricCRS)
}

func TestAreaByKey_MissingKey(t *testing.T) {
	c := geo.Collection{
		CRS:    geo.BCAlbers,
		Schema: geo.Schema{"station_id": geo.FieldString},
		Features: []geo.Feature{
			{Geometry: square(0, 0, 1), Attrs: geo.Attrs{}},
		},
	}
	_, err := AreaByKey(c, "station_id")
	var serr *geo.SchemaError
	require.ErrorAs(t, err, &serr)
}

func TestCoverage(t *testing.T) {
	// one km² of overlap against a 4 km² catchment is 25 percent
	ref := refCollection(
		geo.Feature{Geometry: square(0, 0, 2000), Attrs: geo.Attrs{
			"station_id": "08MH001", "name": "Chilliwack", "area_km2": 4.0,
		}},
		geo.Feature{Geometry: square(5000, 0, 1000), Attrs: geo.Attrs{
			"station_id": "08MH002", "name": "Vedder", "area_km2": 1.0,
		}},
	)
	sums := map[string]float64{"08MH001": 1e6}

	rows, err := Coverage(sums, ref, CoverageOptions{
		KeyField:  "station_id",
		NameField: "name",
		AreaField: "area_km2",
		AreaScale: 1e6,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "08MH001", rows[0].Key)
	require.Equal(t, "Chilliwack", rows[0].Name)
	require.InDelta(t, 25.0, rows[0].Percent, 1e-9)

	// key without any intersection still gets a row, at zero
	require.Equal(t, "08MH002", rows[1].Key)
	require.Zero(t, rows[1].Percent)
}

func TestCoverage_RoundsToTenthOfPercent(t *testing.T) {
	ref := refCollection(
		geo.Feature{Geometry: square(0, 0, 1000), Attrs: geo.Attrs{
			"station_id": "A", "name": "a", "area_km2": 3.0,
		}},
	)
	// 1/3 is 0.333 after rounding, so 33.3 percent
	rows, err := Coverage(map[string]float64{"A": 1e6}, ref, CoverageOptions{
		KeyField:  "station_id",
		NameField: "name",
		AreaField: "area_km2",
		AreaScale: 1e6,
	})
	require.NoError(t, err)
	require.InDelta(t, 33.3, rows[0].Percent, 1e-9)
}

func TestCoverage_DuplicateKeysCollapse(t *testing.T) {
	ref := refCollection(
		geo.Feature{Geometry: square(0, 0, 1000), Attrs: geo.Attrs{
			"station_id": "A", "name": "first", "area_km2": 1.0,
		}},
		geo.Feature{Geometry: square(0, 0, 1000), Attrs: geo.Attrs{
			"station_id": "A", "name": "second", "area_km2": 2.0,
		}},
	)
	rows, err := Coverage(nil, ref, CoverageOptions{
		KeyField:  "station_id",
		NameField: "name",
		AreaField: "area_km2",
		AreaScale: 1e6,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "first", rows[0].Name)
}

func TestCoverage_ZeroReferenceArea(t *testing.T) {
	ref := refCollection(
		geo.Feature{Geometry: square(0, 0, 1000), Attrs: geo.Attrs{
			"station_id": "A", "name": "a", "area_km2": 0.0,
		}},
	)
	_, err := Coverage(nil, ref, CoverageOptions{
		KeyField:  "station_id",
		NameField: "name",
		AreaField: "area_km2",
		AreaScale: 1e6,
	})
	require.ErrorIs(t, err, ErrZeroReferenceArea)
}

func TestCoverage_MissingAreaAttr(t *testing.T) {
	ref := refCollection(
		geo.Feature{Geometry: square(0, 0, 1000), Attrs: geo.Attrs{
			"station_id": "A", "name": "a",
		}},
	)
	_, err := Coverage(nil, ref, CoverageOptions{
		KeyField:  "station_id",
		NameField: "name",
		AreaField: "area_km2",
	})
	var serr *geo.SchemaError
	require.ErrorAs(t, err, &serr)
}

func TestClassifyYears(t *testing.T) {
	cases := []struct {
		years int
		want  string
	}{
		{1, "1-10 years"},
		{10, "1-10 years"},
		{11, "11-20 years"},
		{15, "11-20 years"},
		{20, "11-20 years"},
		{21, "21-50 years"},
		{50, "21-50 years"},
		{51, ">50 years"},
		{130, ">50 years"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ClassifyYears(c.years), "years=%d", c.years)
	}
	for _, c := range cases {
		require.Contains(t, YearBinLabels, ClassifyYears(c.years))
	}
}
