package geo

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// envelope is the serialized form of a Collection. GeoJSON itself carries no
// CRS or column typing, so both ride alongside the feature collection.
type envelope struct {
	CRS        string                     `json:"crs"`
	Schema     map[string]string          `json:"schema"`
	Collection *geojson.FeatureCollection `json:"collection"`
}

var fieldTypeNames = map[FieldType]string{
	FieldString: "string",
	FieldInt:    "int",
	FieldFloat:  "float",
}

var fieldTypesByName = map[string]FieldType{
	"string": FieldString,
	"int":    FieldInt,
	"float":  FieldFloat,
}

// Encode serializes a collection. The output is deterministic for a given
// collection: encoding/json emits map keys in sorted order, so two encodings
// of the same value are byte-identical.
func Encode(c Collection) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range c.Features {
		gf := geojson.NewFeature(f.Geometry)
		gf.Properties = geojson.Properties{}
		for k, v := range f.Attrs {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	schema := make(map[string]string, len(c.Schema))
	for k, t := range c.Schema {
		schema[k] = fieldTypeNames[t]
	}
	data, err := json.Marshal(envelope{CRS: c.CRS.String(), Schema: schema, Collection: fc})
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return data, nil
}

// Decode deserializes a collection previously produced by Encode, restoring
// the declared attribute types (JSON numbers arrive as float64; schema int
// columns are converted back).
func Decode(data []byte) (Collection, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Collection{}, fmt.Errorf("decode collection: %w", err)
	}
	crs, err := ParseCRS(env.CRS)
	if err != nil {
		return Collection{}, fmt.Errorf("decode collection: %w", err)
	}
	schema := make(Schema, len(env.Schema))
	for k, name := range env.Schema {
		t, ok := fieldTypesByName[name]
		if !ok {
			return Collection{}, &SchemaError{Field: k, Reason: fmt.Sprintf("unknown field type %q", name)}
		}
		schema[k] = t
	}
	out := Collection{CRS: crs, Schema: schema}
	if env.Collection == nil {
		return out, nil
	}
	out.Features = make([]Feature, len(env.Collection.Features))
	for i, gf := range env.Collection.Features {
		attrs := make(Attrs, len(gf.Properties))
		for k, v := range gf.Properties {
			if schema[k] == FieldInt {
				if n, ok := v.(float64); ok {
					attrs[k] = int(n)
					continue
				}
			}
			attrs[k] = v
		}
		out.Features[i] = Feature{Geometry: gf.Geometry, Attrs: attrs}
	}
	if err := out.Validate(); err != nil {
		return Collection{}, err
	}
	return out, nil
}
