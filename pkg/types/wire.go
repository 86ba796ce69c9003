package types

import (
	"time"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Constructors for values that are already in wire form.

// Null returns the null value.
func Null() *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_NullValue{NullValue: structpb.NullValue_NULL_VALUE}}
}

func Bool(b bool) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_BooleanValue{BooleanValue: b}}
}

func Integer(n int64) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_IntegerValue{IntegerValue: n}}
}

func Double(f float64) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_DoubleValue{DoubleValue: f}}
}

func String(s string) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_StringValue{StringValue: s}}
}

func Bytes(b []byte) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_BytesValue{BytesValue: b}}
}

func Timestamp(t time.Time) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_TimestampValue{TimestampValue: timestamppb.New(t)}}
}

func Array(values ...*firestorepb.Value) *firestorepb.Value {
	if values == nil {
		values = []*firestorepb.Value{}
	}
	return &firestorepb.Value{ValueType: &firestorepb.Value_ArrayValue{ArrayValue: &firestorepb.ArrayValue{Values: values}}}
}

func Map(fields map[string]*firestorepb.Value) *firestorepb.Value {
	if fields == nil {
		fields = map[string]*firestorepb.Value{}
	}
	return &firestorepb.Value{ValueType: &firestorepb.Value_MapValue{MapValue: &firestorepb.MapValue{Fields: fields}}}
}

// Reference is a full document resource name, e.g.
// "projects/p/databases/(default)/documents/users/alice".
type Reference string

// ToValue renders r as a reference value.
func (r Reference) ToValue() (*firestorepb.Value, error) {
	return &firestorepb.Value{ValueType: &firestorepb.Value_ReferenceValue{ReferenceValue: string(r)}}, nil
}

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// ToValue renders p as a geo point value.
func (p GeoPoint) ToValue() (*firestorepb.Value, error) {
	return &firestorepb.Value{ValueType: &firestorepb.Value_GeoPointValue{
		GeoPointValue: &latlng.LatLng{Latitude: p.Latitude, Longitude: p.Longitude},
	}}, nil
}

const (
	vectorTypeField = "__type__"
	vectorTypeValue = "__vector__"
	vectorValuesKey = "value"
)

// Vector is an embedding stored the way vector fields are stored: a map
// tagged with __type__ = "__vector__" holding an array of doubles.
type Vector []float64

// ToValue renders v as a vector value.
func (v Vector) ToValue() (*firestorepb.Value, error) {
	elems := make([]*firestorepb.Value, len(v))
	for i, f := range v {
		elems[i] = Double(f)
	}
	return Map(map[string]*firestorepb.Value{
		vectorTypeField: String(vectorTypeValue),
		vectorValuesKey: Array(elems...),
	}), nil
}
