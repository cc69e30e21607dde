package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/headwaterlabs/catchcover/internal/geo"
	"github.com/headwaterlabs/catchcover/internal/metrics"
)

// stationPreambleLines is the fixed number of header-comment lines before
// the column row in the federal station inventory export.
const stationPreambleLines = 3

// MaxStationLongitude is a dataset-specific sanity bound, not a general
// rule: the inventory covers stations west of 50°W only, and rows at or east
// of it are known bad coordinates. Rows failing the bound are dropped.
const MaxStationLongitude = -50.0

// stationColumns maps source header names to the attribute names the
// pipeline uses. Every source column here must be present or the load fails
// with a SchemaError.
var stationColumns = map[string]string{
	"Climate ID":                  "station_id",
	"Name":                        "station_name",
	"Province":                    "prov",
	"Latitude (Decimal Degrees)":  "lat",
	"Longitude (Decimal Degrees)": "lon",
	"HLY First Year":              "hly_y1",
	"HLY Last Year":               "hly_y2",
	"DLY First Year":              "dly_y1",
	"DLY Last Year":               "dly_y2",
	"MLY First Year":              "mly_y1",
	"MLY Last Year":               "mly_y2",
}

// StationSchema is the attribute schema of the loaded station inventory.
// The *_yrs columns are derived record lengths, absent when either bound of
// the period of record is missing.
var StationSchema = geo.Schema{
	"station_id":   geo.FieldString,
	"station_name": geo.FieldString,
	"prov":         geo.FieldString,
	"hly_y1":       geo.FieldInt,
	"hly_y2":       geo.FieldInt,
	"hly_yrs":      geo.FieldInt,
	"dly_y1":       geo.FieldInt,
	"dly_y2":       geo.FieldInt,
	"dly_yrs":      geo.FieldInt,
	"mly_y1":       geo.FieldInt,
	"mly_y2":       geo.FieldInt,
	"mly_yrs":      geo.FieldInt,
}

// Stations reads the delimited station inventory into a point collection in
// WGS84. The fixed preamble is skipped, columns are selected and renamed per
// stationColumns, and rows east of MaxStationLongitude are dropped.
func Stations(ctx context.Context, path string) (geo.Collection, error) {
	start := time.Now()
	col, err := stations(ctx, path)
	metrics.ObserveSourceLoad("stations", err, time.Since(start).Seconds())
	return col, err
}

func stations(ctx context.Context, path string) (geo.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return geo.Collection{}, fmt.Errorf("station inventory %s: %v: %w", path, err, ErrUnavailable)
	}
	defer f.Close()
	return ParseStations(ctx, f)
}

// ParseStations parses inventory rows from r. Split out from Stations so
// tests can feed inline fixtures.
func ParseStations(ctx context.Context, r io.Reader) (geo.Collection, error) {
	br := bufio.NewReader(r)
	for i := 0; i < stationPreambleLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return geo.Collection{}, fmt.Errorf("station inventory preamble: %v: %w", err, ErrUnavailable)
		}
	}

	// the header row fixes the field count; ragged rows fail in cr.Read
	// rather than panicking on a missing column index below
	cr := csv.NewReader(br)

	header, err := cr.Read()
	if err != nil {
		return geo.Collection{}, fmt.Errorf("station inventory header: %v: %w", err, ErrUnavailable)
	}
	idx := make(map[string]int, len(stationColumns))
	for i, h := range header {
		if dst, ok := stationColumns[strings.TrimSpace(h)]; ok {
			idx[dst] = i
		}
	}
	for _, dst := range stationColumns {
		if _, ok := idx[dst]; !ok {
			return geo.Collection{}, &geo.SchemaError{Field: dst, Reason: "column missing from station inventory"}
		}
	}

	out := geo.Collection{CRS: geo.WGS84, Schema: StationSchema}
	for {
		if err := ctx.Err(); err != nil {
			return geo.Collection{}, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return geo.Collection{}, fmt.Errorf("station inventory row: %v: %w", err, ErrUnavailable)
		}
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(rec[idx["lat"]]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(rec[idx["lon"]]), 64)
		if latErr != nil || lonErr != nil {
			continue // no coordinates, no point
		}
		if lon >= MaxStationLongitude {
			continue
		}

		attrs := geo.Attrs{
			"station_id":   strings.TrimSpace(rec[idx["station_id"]]),
			"station_name": strings.TrimSpace(rec[idx["station_name"]]),
			"prov":         strings.TrimSpace(rec[idx["prov"]]),
		}
		for _, freq := range []string{"hly", "dly", "mly"} {
			y1, ok1 := parseYear(rec[idx[freq+"_y1"]])
			y2, ok2 := parseYear(rec[idx[freq+"_y2"]])
			if ok1 {
				attrs[freq+"_y1"] = y1
			}
			if ok2 {
				attrs[freq+"_y2"] = y2
			}
			if ok1 && ok2 {
				attrs[freq+"_yrs"] = y2 - y1
			}
		}
		out.Features = append(out.Features, geo.Feature{
			Geometry: orb.Point{lon, lat},
			Attrs:    attrs,
		})
	}
	if err := out.Validate(); err != nil {
		return geo.Collection{}, err
	}
	return out, nil
}

func parseYear(s string) (int, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y == 0 {
		return 0, false
	}
	return y, true
}
