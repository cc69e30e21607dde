package geo

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func pointCollection(crs CRS, pts ...orb.Point) Collection {
	c := Collection{CRS: crs, Schema: Schema{"id": FieldString}}
	for i, p := range pts {
		c.Features = append(c.Features, Feature{
			Geometry: p,
			Attrs:    Attrs{"id": string(rune('a' + i))},
		})
	}
	return c
}

func TestValidate_RejectsUndeclaredAndMistyped(t *testing.T) {
	c := Collection{
		CRS:    WGS84,
		Schema: Schema{"id": FieldString, "count": FieldInt},
		Features: []Feature{
			{Geometry: orb.Point{1, 2}, Attrs: Attrs{"id": "x", "count": 3}},
		},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("valid collection rejected: %v", err)
	}

	c.Features[0].Attrs["rogue"] = 1.0
	var se *SchemaError
	if err := c.Validate(); !errors.As(err, &se) {
		t.Fatalf("undeclared attribute: got %v, want SchemaError", err)
	}
	delete(c.Features[0].Attrs, "rogue")

	c.Features[0].Attrs["count"] = "three"
	if err := c.Validate(); !errors.As(err, &se) {
		t.Fatalf("mistyped attribute: got %v, want SchemaError", err)
	}
}

func TestValidate_MissingAttributeIsLegal(t *testing.T) {
	c := Collection{
		CRS:    WGS84,
		Schema: Schema{"id": FieldString, "yrs": FieldInt},
		Features: []Feature{
			{Geometry: orb.Point{1, 2}, Attrs: Attrs{"id": "x"}},
		},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("missing optional attribute rejected: %v", err)
	}
}

func TestConcat_PreservesOrderAndChecksInputs(t *testing.T) {
	a := pointCollection(WGS84, orb.Point{1, 1}, orb.Point{2, 2})
	b := pointCollection(WGS84, orb.Point{3, 3})

	out, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if len(out.Features) != 3 {
		t.Fatalf("got %d features, want 3", len(out.Features))
	}
	if got := out.Features[2].Geometry.(orb.Point); got != (orb.Point{3, 3}) {
		t.Fatalf("order not preserved: %v", got)
	}

	c := pointCollection(BCAlbers, orb.Point{0, 0})
	if _, err := Concat(a, c); !errors.Is(err, ErrCRSMismatch) {
		t.Fatalf("mixed CRS: got %v, want ErrCRSMismatch", err)
	}

	d := pointCollection(WGS84, orb.Point{0, 0})
	d.Schema = Schema{"other": FieldString}
	var se *SchemaError
	if _, err := Concat(a, d); !errors.As(err, &se) {
		t.Fatalf("mixed schema: got %v, want SchemaError", err)
	}
}

func TestFeatureAccessors(t *testing.T) {
	f := Feature{Attrs: Attrs{"name": "x", "yrs": 15, "area": 2.5}}

	if s, ok := f.String("name"); !ok || s != "x" {
		t.Fatalf("String: %q %v", s, ok)
	}
	if n, ok := f.Int("yrs"); !ok || n != 15 {
		t.Fatalf("Int: %d %v", n, ok)
	}
	if x, ok := f.Float("area"); !ok || x != 2.5 {
		t.Fatalf("Float: %g %v", x, ok)
	}
	// ints read as floats, floats as ints, for columns that cross codecs
	if x, ok := f.Float("yrs"); !ok || x != 15 {
		t.Fatalf("Float over int: %g %v", x, ok)
	}
	if _, ok := f.String("absent"); ok {
		t.Fatal("absent attribute reported present")
	}
}
