package definition

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore/apiv1/firestorepb"

	"github.com/theory-cloud/structuredquery/pkg/query"
	"github.com/theory-cloud/structuredquery/pkg/types"
)

// Build converts q into a query.Query, converting every value with conv. A
// nil conv uses types.Default(). Value conversion failures are returned as
// *errors.ConversionError.
func (q *QueryDef) Build(conv *types.Converter) (query.Query, error) {
	if conv == nil {
		conv = types.Default()
	}
	if err := validateQuery(q); err != nil {
		return query.Query{}, err
	}

	b := queryBuilder{conv: conv}
	out, err := b.build(q)
	if err != nil {
		return query.Query{}, fmt.Errorf("query %s: %w", q.Name, err)
	}
	return out, nil
}

type queryBuilder struct {
	conv *types.Converter
}

func (b queryBuilder) build(def *QueryDef) (query.Query, error) {
	var q query.Query
	if !isBlank(def.Collection) {
		q = query.Collection(def.Collection)
	} else {
		q = query.CollectionGroup(def.CollectionGroup)
	}

	if def.Select != nil {
		fields := make([]query.FieldReferencer, len(def.Select))
		for i, p := range def.Select {
			fields[i] = p.FieldPath()
		}
		q = q.Select(fields...)
	}

	if def.Where != nil {
		f, err := b.filter(*def.Where)
		if err != nil {
			return query.Query{}, fmt.Errorf("where: %w", err)
		}
		q = q.Where(f)
	}

	if len(def.OrderBy) > 0 {
		orders := make([]query.OrderSource, len(def.OrderBy))
		for i, o := range def.OrderBy {
			dir, err := query.ParseDirection(o.Direction)
			if err != nil {
				return query.Query{}, err
			}
			orders[i] = query.NewOrder(o.Field.FieldPath(), dir)
		}
		q = q.OrderBy(orders...)
	}

	cursors := []struct {
		set  func(query.Query, ...*firestorepb.Value) query.Query
		raw  json.RawMessage
		name string
	}{
		{name: "start_at", raw: def.StartAt, set: query.Query.StartAt},
		{name: "start_after", raw: def.StartAfter, set: query.Query.StartAfter},
		{name: "end_at", raw: def.EndAt, set: query.Query.EndAt},
		{name: "end_before", raw: def.EndBefore, set: query.Query.EndBefore},
	}
	for _, c := range cursors {
		if !present(c.raw) {
			continue
		}
		values, err := b.cursorValues(c.raw)
		if err != nil {
			return query.Query{}, fmt.Errorf("%s: %w", c.name, err)
		}
		q = c.set(q, values...)
	}

	q = q.Offset(def.Offset)
	if def.Limit != nil {
		q = q.Limit(*def.Limit)
	}

	if n := def.FindNearest; n != nil {
		measure, err := query.ParseDistanceMeasure(n.DistanceMeasure)
		if err != nil {
			return query.Query{}, err
		}
		q = q.FindNearest(query.FindNearest{
			VectorField:         n.VectorField.FieldPath(),
			QueryVector:         types.Vector(n.QueryVector),
			Measure:             measure,
			Limit:               n.Limit,
			DistanceResultField: n.DistanceResultField,
			DistanceThreshold:   n.DistanceThreshold,
		})
	}

	return q, nil
}

func (b queryBuilder) filter(def FilterDef) (query.Filter, error) {
	switch {
	case def.And != nil:
		operands, err := b.filters(def.And, "and")
		if err != nil {
			return query.Filter{}, err
		}
		return query.And(operands...), nil

	case def.Or != nil:
		operands, err := b.filters(def.Or, "or")
		if err != nil {
			return query.Filter{}, err
		}
		return query.Or(operands...), nil
	}

	path := def.Field.FieldPath()
	if op, err := query.ParseUnaryOperator(def.Op); err == nil {
		return query.UnaryFilter(path, op), nil
	}

	op, err := query.ParseFieldOperator(def.Op)
	if err != nil {
		return query.Filter{}, err
	}
	value, err := decodeValue(def.Value)
	if err != nil {
		return query.Filter{}, fmt.Errorf("%s: %w", path, err)
	}
	return query.FieldFilter(path, op, b.conv.Source(value))
}

func (b queryBuilder) filters(defs []FilterDef, name string) ([]query.Filter, error) {
	out := make([]query.Filter, len(defs))
	for i, def := range defs {
		f, err := b.filter(def)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		out[i] = f
	}
	return out, nil
}

func (b queryBuilder) cursorValues(raw json.RawMessage) ([]*firestorepb.Value, error) {
	decoded, err := decodeValue(raw)
	if err != nil {
		return nil, err
	}
	list, ok := decoded.([]any)
	if !ok {
		return nil, invalid("cursor must be a list of values")
	}

	srcs := make([]types.ValueSource, len(list))
	for i, v := range list {
		srcs[i] = b.conv.Source(v)
	}
	return query.CursorValues(srcs...)
}

// decodeValue turns a document value into a Go value the serializer
// understands. Integers stay integers, and single-key maps whose key starts
// with "$" select a typed value:
//
//	{$timestamp: "2024-01-02T03:04:05Z"}
//	{$reference: "projects/p/databases/(default)/documents/c/d"}
//	{$bytes: "aGVsbG8="}
//	{$double: 1}
//	{$geopoint: {latitude: 1.5, longitude: 2.5}}
//	{$vector: [0.1, 0.2]}
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, invalid("decode value: %v", err)
	}
	return plainValue(v)
}

func plainValue(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		if !strings.ContainsAny(val.String(), ".eE") {
			return nil, invalid("integer %s out of range", val)
		}
		f, err := val.Float64()
		if err != nil {
			return nil, invalid("number %s out of range", val)
		}
		return f, nil

	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			p, err := plainValue(elem)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil

	case map[string]any:
		if len(val) == 1 {
			for k, inner := range val {
				if strings.HasPrefix(k, "$") {
					return typedValue(k, inner)
				}
			}
		}
		out := make(map[string]any, len(val))
		for k, elem := range val {
			p, err := plainValue(elem)
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		return out, nil

	default:
		return val, nil
	}
}

func typedValue(kind string, v any) (any, error) {
	switch kind {
	case "$timestamp":
		s, ok := v.(string)
		if !ok {
			return nil, invalid("$timestamp must be an RFC 3339 string")
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, invalid("$timestamp: %v", err)
		}
		return t, nil

	case "$reference":
		s, ok := v.(string)
		if !ok {
			return nil, invalid("$reference must be a string")
		}
		return types.Reference(s), nil

	case "$bytes":
		s, ok := v.(string)
		if !ok {
			return nil, invalid("$bytes must be a base64 string")
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, invalid("$bytes: %v", err)
		}
		return b, nil

	case "$double":
		n, ok := v.(json.Number)
		if !ok {
			return nil, invalid("$double must be a number")
		}
		f, err := n.Float64()
		if err != nil {
			return nil, invalid("$double: %v", err)
		}
		return f, nil

	case "$geopoint":
		m, ok := v.(map[string]any)
		if !ok {
			return nil, invalid("$geopoint must be a map with latitude and longitude")
		}
		lat, err := number(m["latitude"])
		if err != nil {
			return nil, invalid("$geopoint latitude: %v", err)
		}
		lng, err := number(m["longitude"])
		if err != nil {
			return nil, invalid("$geopoint longitude: %v", err)
		}
		return types.GeoPoint{Latitude: lat, Longitude: lng}, nil

	case "$vector":
		list, ok := v.([]any)
		if !ok {
			return nil, invalid("$vector must be a list of numbers")
		}
		vec := make(types.Vector, len(list))
		for i, elem := range list {
			f, err := number(elem)
			if err != nil {
				return nil, invalid("$vector[%d]: %v", i, err)
			}
			vec[i] = f
		}
		return vec, nil

	default:
		return nil, invalid("unknown typed value %s", kind)
	}
}

func number(v any) (float64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	return n.Float64()
}
