package geo

import (
	"fmt"
	"strings"
)

// CRS identifies a coordinate reference system, either by registry code
// ("EPSG:3005") or by a full proj-string. A metric CRS maps coordinate
// differences directly to distance and area; a geographic CRS is valid only
// for storage and display.
type CRS struct {
	id         string
	geographic bool
}

// Registry codes the pipeline works with. PROJ resolves the codes at
// transform time; the table only records which of them are geographic so
// that metric preconditions can be checked without a PROJ round trip.
var crsRegistry = map[string]bool{
	"EPSG:4326":  true,  // WGS84 lon/lat
	"EPSG:4269":  true,  // NAD83 lon/lat, the station inventory's native datum
	"EPSG:3005":  false, // BC Albers, the provincial equal-area standard
	"EPSG:3857":  false, // web mercator
	"EPSG:32609": false, // UTM 9N
	"EPSG:32610": false, // UTM 10N
}

// WGS84 is the geographic CRS assigned to coordinate columns read from
// delimited text.
var WGS84 = CRS{id: "EPSG:4326", geographic: true}

// BCAlbers is the metric CRS used for buffering, area, and intersection.
var BCAlbers = CRS{id: "EPSG:3005", geographic: false}

// ParseCRS resolves an identifier to a CRS. Registry codes must be known to
// the table above; proj-strings are classified by their +proj parameter.
func ParseCRS(id string) (CRS, error) {
	s := strings.TrimSpace(id)
	if s == "" {
		return CRS{}, fmt.Errorf("empty identifier: %w", ErrUnsupportedCRS)
	}
	if geographic, ok := crsRegistry[strings.ToUpper(s)]; ok {
		return CRS{id: strings.ToUpper(s), geographic: geographic}, nil
	}
	if strings.HasPrefix(s, "+proj=") || strings.Contains(s, " +proj=") {
		return CRS{id: s, geographic: strings.Contains(s, "+proj=longlat")}, nil
	}
	// WKT from a shapefile's .prj companion
	if strings.HasPrefix(s, "PROJCS") || strings.HasPrefix(s, "PROJCRS") {
		return CRS{id: s, geographic: false}, nil
	}
	if strings.HasPrefix(s, "GEOGCS") || strings.HasPrefix(s, "GEOGCRS") {
		return CRS{id: s, geographic: true}, nil
	}
	return CRS{}, fmt.Errorf("%q: %w", id, ErrUnsupportedCRS)
}

// MustParseCRS is ParseCRS for identifiers known at compile time.
func MustParseCRS(id string) CRS {
	c, err := ParseCRS(id)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CRS) String() string { return c.id }

// Metric reports whether the CRS is projected and planar, so that distances
// and areas computed from its coordinates are physically meaningful.
func (c CRS) Metric() bool { return c.id != "" && !c.geographic }

func (c CRS) Equal(o CRS) bool { return c.id == o.id }

// IsZero reports whether the CRS is unset.
func (c CRS) IsZero() bool { return c.id == "" }

// definition is the string handed to PROJ.
func (c CRS) definition() string { return c.id }
