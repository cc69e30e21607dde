package source

import (
	"context"
	"testing"

	"github.com/paulmach/orb"

	"github.com/headwaterlabs/catchcover/internal/geo"
)

func TestProvinceBoundary(t *testing.T) {
	col, err := ProvinceBoundary(context.Background())
	if err != nil {
		t.Fatalf("ProvinceBoundary: %v", err)
	}
	if !col.CRS.Equal(geo.WGS84) {
		t.Fatalf("CRS = %v, want WGS84", col.CRS)
	}
	if len(col.Features) == 0 {
		t.Fatal("empty boundary")
	}
	f := col.Features[0]
	switch f.Geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		t.Fatalf("geometry = %T, want polygonal", f.Geometry)
	}
	if name, ok := f.String("name"); !ok || name == "" {
		t.Fatalf("name = %q (%v)", name, ok)
	}
	if err := col.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
