// Package geo defines the collection model shared by every pipeline stage
// and the geometry operations performed on it.
package geo

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// FieldType enumerates the value types an attribute column may hold.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	FieldFloat
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldInt:
		return "int"
	case FieldFloat:
		return "float"
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Schema declares the attribute columns of a collection. Attributes outside
// the schema are rejected at validation time rather than silently carried.
type Schema map[string]FieldType

// Attrs maps attribute names to scalar values. Absent keys mean the value is
// missing for that feature, which is legal for any schema column.
type Attrs map[string]any

// Feature pairs one geometry with its attributes.
type Feature struct {
	Geometry orb.Geometry
	Attrs    Attrs
}

// Collection is an ordered sequence of features sharing one CRS and one
// attribute schema. Stages never mutate a collection they received; every
// operation returns a fresh value.
type Collection struct {
	CRS      CRS
	Schema   Schema
	Features []Feature
}

// String returns a string attribute and whether it is present.
func (f Feature) String(key string) (string, bool) {
	v, ok := f.Attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns an int attribute and whether it is present.
func (f Feature) Int(key string) (int, bool) {
	v, ok := f.Attrs[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

// Float returns a float attribute and whether it is present.
func (f Feature) Float(key string) (float64, bool) {
	v, ok := f.Attrs[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (f Feature) cloneAttrs() Attrs {
	out := make(Attrs, len(f.Attrs))
	for k, v := range f.Attrs {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy: feature slice, geometries, and attribute maps
// are all fresh, so mutating the copy cannot reach the original.
func (c Collection) Clone() Collection {
	out := Collection{CRS: c.CRS, Schema: c.Schema, Features: make([]Feature, len(c.Features))}
	for i, f := range c.Features {
		out.Features[i] = Feature{Geometry: orb.Clone(f.Geometry), Attrs: f.cloneAttrs()}
	}
	return out
}

// Validate checks every feature's attributes against the collection schema.
func (c Collection) Validate() error {
	for i, f := range c.Features {
		for k, v := range f.Attrs {
			t, ok := c.Schema[k]
			if !ok {
				return &SchemaError{Field: k, Reason: fmt.Sprintf("feature %d: attribute not declared in schema", i)}
			}
			if v == nil {
				continue
			}
			if !typeMatches(t, v) {
				return &SchemaError{Field: k, Reason: fmt.Sprintf("feature %d: want %s, got %T", i, t, v)}
			}
		}
	}
	return nil
}

func typeMatches(t FieldType, v any) bool {
	switch t {
	case FieldString:
		_, ok := v.(string)
		return ok
	case FieldInt:
		_, ok := v.(int)
		return ok
	case FieldFloat:
		_, ok := v.(float64)
		return ok
	}
	return false
}

// Fields returns the schema's column names in sorted order.
func (s Schema) Fields() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s Schema) equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for k, t := range s {
		if ot, ok := o[k]; !ok || ot != t {
			return false
		}
	}
	return true
}

// Concat appends same-schema, same-CRS collections into one fresh collection.
// Feature order follows the argument order.
func Concat(cs ...Collection) (Collection, error) {
	if len(cs) == 0 {
		return Collection{}, fmt.Errorf("concat: no collections")
	}
	first := cs[0]
	out := Collection{
		CRS:    first.CRS,
		Schema: first.Schema,
	}
	for i, c := range cs {
		if !c.CRS.Equal(first.CRS) {
			return Collection{}, fmt.Errorf("concat: collection %d is in %s, want %s: %w", i, c.CRS, first.CRS, ErrCRSMismatch)
		}
		if !c.Schema.equal(first.Schema) {
			return Collection{}, &SchemaError{Reason: fmt.Sprintf("concat: collection %d schema differs", i)}
		}
		out.Features = append(out.Features, c.Features...)
	}
	return out, nil
}
