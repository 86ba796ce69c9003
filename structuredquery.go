// Package structuredquery builds Firestore StructuredQuery messages with a
// fluent, value-typed API.
//
// Import path:
//
//	import "github.com/theory-cloud/structuredquery"
//
// Implementation lives in `pkg/query` and `pkg/types` so the repo root stays minimal.
package structuredquery

import (
	"context"

	"cloud.google.com/go/firestore/apiv1/firestorepb"

	"github.com/theory-cloud/structuredquery/pkg/core"
	"github.com/theory-cloud/structuredquery/pkg/errors"
	"github.com/theory-cloud/structuredquery/pkg/query"
	"github.com/theory-cloud/structuredquery/pkg/types"
)

type (
	Query       = query.Query
	FieldPath   = query.FieldPath
	Filter      = query.Filter
	Order       = query.Order
	FindNearest = query.FindNearest

	FieldOperator     = query.FieldOperator
	UnaryOperator     = query.UnaryOperator
	CompositeOperator = query.CompositeOperator
	Direction         = query.Direction
	DistanceMeasure   = query.DistanceMeasure

	// Re-export the boundary types for convenience.
	ValueSource     = types.ValueSource
	Converter       = types.Converter
	Transport       = core.Transport
	ConversionError = errors.ConversionError
)

const (
	LessThan           = query.LessThan
	LessThanOrEqual    = query.LessThanOrEqual
	GreaterThan        = query.GreaterThan
	GreaterThanOrEqual = query.GreaterThanOrEqual
	Equal              = query.Equal
	NotEqual           = query.NotEqual
	ArrayContains      = query.ArrayContains
	ArrayContainsAny   = query.ArrayContainsAny
	In                 = query.In
	NotIn              = query.NotIn

	IsNaN     = query.IsNaN
	IsNotNaN  = query.IsNotNaN
	IsNull    = query.IsNull
	IsNotNull = query.IsNotNull

	Ascending  = query.Ascending
	Descending = query.Descending

	Euclidean  = query.Euclidean
	Cosine     = query.Cosine
	DotProduct = query.DotProduct
)

// ErrValueConversion matches every value conversion failure.
var ErrValueConversion = errors.ErrValueConversion

func Collection(id string) Query {
	return query.Collection(id)
}

func CollectionGroup(id string) Query {
	return query.CollectionGroup(id)
}

func Raw(path string) FieldPath {
	return query.Raw(path)
}

func NewFieldPath(segments ...string) FieldPath {
	return query.NewFieldPath(segments...)
}

func And(filters ...Filter) Filter {
	return query.And(filters...)
}

func Or(filters ...Filter) Filter {
	return query.Or(filters...)
}

func Wire(v *firestorepb.Value) ValueSource {
	return types.Wire(v)
}

func Serialize(v any) ValueSource {
	return types.Serialize(v)
}

func CursorValues(srcs ...ValueSource) ([]*firestorepb.Value, error) {
	return query.CursorValues(srcs...)
}

func EncodeCursor(c *firestorepb.Cursor) (string, error) {
	return query.EncodeCursor(c)
}

func DecodeCursor(token string) (*firestorepb.Cursor, error) {
	return query.DecodeCursor(token)
}

func Send(ctx context.Context, t Transport, parent string, q Query) ([]*firestorepb.RunQueryResponse, error) {
	return query.Send(ctx, t, parent, q)
}
