package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

func square(x0, y0, side float64) orb.Polygon {
	return orb.Polygon{{
		{x0, y0}, {x0 + side, y0}, {x0 + side, y0 + side}, {x0, y0 + side}, {x0, y0},
	}}
}

func polyCollection(crs CRS, attrs []Attrs, polys ...orb.Polygon) Collection {
	schema := Schema{}
	for _, a := range attrs {
		for k := range a {
			schema[k] = FieldString
		}
	}
	c := Collection{CRS: crs, Schema: schema}
	for i, p := range polys {
		var a Attrs
		if i < len(attrs) {
			a = attrs[i]
		}
		c.Features = append(c.Features, Feature{Geometry: p, Attrs: a})
	}
	return c
}

func TestBuffer_Monotone(t *testing.T) {
	c := polyCollection(BCAlbers, nil, square(0, 0, 1000))

	small, err := Buffer(c, 100)
	if err != nil {
		t.Fatalf("Buffer(100): %v", err)
	}
	large, err := Buffer(c, 500)
	if err != nil {
		t.Fatalf("Buffer(500): %v", err)
	}

	aSmall := math.Abs(planar.Area(small.Features[0].Geometry))
	aLarge := math.Abs(planar.Area(large.Features[0].Geometry))
	if aSmall <= 1000*1000 {
		t.Fatalf("buffered area %.0f not larger than input", aSmall)
	}
	if aLarge <= aSmall {
		t.Fatalf("buffer not monotone: %.0f at 100m, %.0f at 500m", aSmall, aLarge)
	}

	// the smaller buffer sits inside the larger one
	inner, err := Intersect(small, large)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	aInner := math.Abs(planar.Area(inner.Features[0].Geometry))
	if math.Abs(aInner-aSmall)/aSmall > 1e-6 {
		t.Fatalf("small buffer not contained in large: %.2f vs %.2f", aInner, aSmall)
	}
}

func TestBuffer_Preconditions(t *testing.T) {
	geographic := polyCollection(WGS84, nil, square(-123, 49, 1))
	if _, err := Buffer(geographic, 100); !errors.Is(err, ErrNonMetricCRS) {
		t.Fatalf("geographic buffer: got %v, want ErrNonMetricCRS", err)
	}

	metric := polyCollection(BCAlbers, nil, square(0, 0, 10))
	if _, err := Buffer(metric, -1); err == nil {
		t.Fatal("negative distance accepted")
	}
	if _, err := Buffer(metric, 0); err != nil {
		t.Fatalf("zero distance rejected: %v", err)
	}
}

func TestFilterWithin_BoundaryAndOrder(t *testing.T) {
	regions := polyCollection(BCAlbers, nil, square(0, 0, 100))
	points := Collection{
		CRS:    BCAlbers,
		Schema: Schema{"id": FieldString},
		Features: []Feature{
			{Geometry: orb.Point{50, 50}, Attrs: Attrs{"id": "inside"}},
			{Geometry: orb.Point{500, 500}, Attrs: Attrs{"id": "outside"}},
			{Geometry: orb.Point{0, 50}, Attrs: Attrs{"id": "boundary"}},
			{Geometry: orb.Point{99, 1}, Attrs: Attrs{"id": "corner"}},
		},
	}

	got, err := FilterWithin(points, regions)
	if err != nil {
		t.Fatalf("FilterWithin: %v", err)
	}
	var ids []string
	for _, f := range got.Features {
		id, _ := f.String("id")
		ids = append(ids, id)
	}
	want := []string{"inside", "boundary", "corner"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v (order preserved, boundary included)", ids, want)
		}
	}
}

func TestFilterWithin_CRSMismatch(t *testing.T) {
	points := pointCollection(WGS84, orb.Point{0, 0})
	regions := polyCollection(BCAlbers, nil, square(0, 0, 1))
	if _, err := FilterWithin(points, regions); !errors.Is(err, ErrCRSMismatch) {
		t.Fatalf("got %v, want ErrCRSMismatch", err)
	}
}

func TestIntersect_ContainmentAndAttrs(t *testing.T) {
	a := polyCollection(BCAlbers,
		[]Attrs{{"station_id": "A1", "name": "left"}},
		square(0, 0, 1000))
	b := polyCollection(BCAlbers,
		[]Attrs{{"zone": "CMA", "name": "right"}},
		square(500, 0, 1000))

	out, err := Intersect(a, b)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if len(out.Features) != 1 {
		t.Fatalf("%d features, want 1", len(out.Features))
	}
	f := out.Features[0]

	// overlap is the 500x1000 strip
	area := math.Abs(planar.Area(f.Geometry))
	if math.Abs(area-500*1000) > 1 {
		t.Fatalf("intersection area %.0f, want 500000", area)
	}
	bound := f.Geometry.Bound()
	if bound.Min[0] < 500-1e-9 || bound.Max[0] > 1000+1e-9 {
		t.Fatalf("intersection escapes both parents: %v", bound)
	}

	// attribute union, left wins the name collision
	if id, _ := f.String("station_id"); id != "A1" {
		t.Fatalf("station_id = %q", id)
	}
	if z, _ := f.String("zone"); z != "CMA" {
		t.Fatalf("zone = %q", z)
	}
	if name, _ := f.String("name"); name != "left" {
		t.Fatalf("collision resolved to %q, want left operand's value", name)
	}
}

func TestIntersect_DisjointIsEmptyNotError(t *testing.T) {
	a := polyCollection(BCAlbers, nil, square(0, 0, 10))
	b := polyCollection(BCAlbers, nil, square(100, 100, 10))

	out, err := Intersect(a, b)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if len(out.Features) != 0 {
		t.Fatalf("%d features from disjoint inputs", len(out.Features))
	}
}

func TestIntersect_EdgeTouchOmitted(t *testing.T) {
	a := polyCollection(BCAlbers, nil, square(0, 0, 10))
	b := polyCollection(BCAlbers, nil, square(10, 0, 10)) // shares an edge only

	out, err := Intersect(a, b)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if len(out.Features) != 0 {
		t.Fatalf("edge touch produced %d features, want 0", len(out.Features))
	}
}

func TestArea_RequiresMetricCRS(t *testing.T) {
	c := polyCollection(WGS84, nil, square(-123, 49, 1))
	if _, err := Area(c, 0); !errors.Is(err, ErrNonMetricCRS) {
		t.Fatalf("got %v, want ErrNonMetricCRS", err)
	}

	m := polyCollection(BCAlbers, nil, square(0, 0, 100))
	a, err := Area(m, 0)
	if err != nil {
		t.Fatalf("Area: %v", err)
	}
	if math.Abs(a-10000) > 1e-6 {
		t.Fatalf("area = %g, want 10000", a)
	}
}
