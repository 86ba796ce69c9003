// Package query builds structured queries: field paths, filters, orders,
// cursors and the query message that carries them.
package query

import (
	"fmt"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/theory-cloud/structuredquery/pkg/types"
)

// FieldReferencer is anything that renders to a wire field reference: a
// FieldPath or a pre-rendered reference wrapped with WireField.
type FieldReferencer interface {
	FieldReference() *firestorepb.StructuredQuery_FieldReference
}

type wireField struct {
	ref *firestorepb.StructuredQuery_FieldReference
}

// WireField wraps a field reference that is already in wire form.
func WireField(ref *firestorepb.StructuredQuery_FieldReference) FieldReferencer {
	return wireField{ref: ref}
}

func (w wireField) FieldReference() *firestorepb.StructuredQuery_FieldReference {
	if w.ref == nil {
		return nil
	}
	return proto.Clone(w.ref).(*firestorepb.StructuredQuery_FieldReference)
}

// Query is a structured query builder.
//
// Query has value semantics: every setter returns a new Query and leaves the
// receiver untouched, and every setter replaces the previous value of its
// part rather than adding to it. Messages held by a Query are never mutated
// after they are stored, so copies may share them.
type Query struct {
	projection  *firestorepb.StructuredQuery_Projection
	where       *firestorepb.StructuredQuery_Filter
	startAt     *firestorepb.Cursor
	endAt       *firestorepb.Cursor
	limit       *int32
	findNearest *firestorepb.StructuredQuery_FindNearest
	collection  string
	orderBy     []*firestorepb.StructuredQuery_Order
	offset      int32
	descendants bool
}

// Collection queries the collection with the given id under the request
// parent.
func Collection(id string) Query {
	return Query{collection: id}
}

// CollectionGroup queries every collection with the given id at any depth
// below the request parent.
func CollectionGroup(id string) Query {
	return Query{collection: id, descendants: true}
}

// CollectionID returns the id of the queried collection.
func (q Query) CollectionID() string { return q.collection }

// AllDescendants reports whether q is a collection group query.
func (q Query) AllDescendants() bool { return q.descendants }

// Select replaces the projection. Calling Select with no fields requests an
// explicit empty projection, which differs from never calling Select.
func (q Query) Select(fields ...FieldReferencer) Query {
	refs := make([]*firestorepb.StructuredQuery_FieldReference, 0, len(fields))
	for _, f := range fields {
		if f == nil {
			continue
		}
		if ref := f.FieldReference(); ref != nil {
			refs = append(refs, ref)
		}
	}
	q.projection = &firestorepb.StructuredQuery_Projection{Fields: refs}
	return q
}

// Where replaces the root filter. A nil filter clears it.
func (q Query) Where(filter FilterSource) Query {
	if filter == nil {
		q.where = nil
		return q
	}
	q.where = filter.StructuredQueryFilter()
	return q
}

// OrderBy replaces the ordering.
func (q Query) OrderBy(orders ...OrderSource) Query {
	rendered := make([]*firestorepb.StructuredQuery_Order, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		if order := o.StructuredQueryOrder(); order != nil {
			rendered = append(rendered, order)
		}
	}
	q.orderBy = rendered
	return q
}

// StartAt replaces the start cursor with one that includes a document equal
// to values.
func (q Query) StartAt(values ...*firestorepb.Value) Query {
	q.startAt = newCursor(values, true)
	return q
}

// StartAfter replaces the start cursor with one that skips a document equal
// to values.
func (q Query) StartAfter(values ...*firestorepb.Value) Query {
	q.startAt = newCursor(values, false)
	return q
}

// EndAt replaces the end cursor. The cursor is written with before=false.
func (q Query) EndAt(values ...*firestorepb.Value) Query {
	q.endAt = newCursor(values, false)
	return q
}

// EndBefore replaces the end cursor. The cursor is written with before=true.
func (q Query) EndBefore(values ...*firestorepb.Value) Query {
	q.endAt = newCursor(values, true)
	return q
}

// StartAtCursor replaces the start cursor with a copy of c. A nil c clears it.
func (q Query) StartAtCursor(c *firestorepb.Cursor) Query {
	q.startAt = cloneCursor(c)
	return q
}

// EndAtCursor replaces the end cursor with a copy of c. A nil c clears it.
func (q Query) EndAtCursor(c *firestorepb.Cursor) Query {
	q.endAt = cloneCursor(c)
	return q
}

// StartCursor returns a copy of the start cursor, or nil.
func (q Query) StartCursor() *firestorepb.Cursor { return cloneCursor(q.startAt) }

// EndCursor returns a copy of the end cursor, or nil.
func (q Query) EndCursor() *firestorepb.Cursor { return cloneCursor(q.endAt) }

// Offset replaces the number of leading results to skip.
func (q Query) Offset(n int32) Query {
	q.offset = n
	return q
}

// Limit replaces the maximum number of results.
func (q Query) Limit(n int32) Query {
	q.limit = &n
	return q
}

// FindNearest replaces the vector search stage. It panics if n.Measure is
// not a declared DistanceMeasure.
func (q Query) FindNearest(n FindNearest) Query {
	q.findNearest = n.StructuredQueryFindNearest()
	return q
}

// StructuredQuery renders q. Each call returns a fresh message; rendering the
// same Query twice gives structurally equal results.
func (q Query) StructuredQuery() *firestorepb.StructuredQuery {
	sq := &firestorepb.StructuredQuery{
		Select: q.projection,
		From: []*firestorepb.StructuredQuery_CollectionSelector{{
			CollectionId:   q.collection,
			AllDescendants: q.descendants,
		}},
		Where:       q.where,
		OrderBy:     q.orderBy,
		StartAt:     q.startAt,
		EndAt:       q.endAt,
		Offset:      q.offset,
		FindNearest: q.findNearest,
	}
	if q.limit != nil {
		sq.Limit = wrapperspb.Int32(*q.limit)
	}
	return proto.Clone(sq).(*firestorepb.StructuredQuery)
}

// RunQueryRequest wraps the rendered query in a request for parent, a
// resource name such as "projects/p/databases/(default)/documents".
func (q Query) RunQueryRequest(parent string) *firestorepb.RunQueryRequest {
	return &firestorepb.RunQueryRequest{
		Parent: parent,
		QueryType: &firestorepb.RunQueryRequest_StructuredQuery{
			StructuredQuery: q.StructuredQuery(),
		},
	}
}

// CursorValues converts application values for StartAt and the other cursor
// setters. It stops at the first conversion failure.
func CursorValues(srcs ...types.ValueSource) ([]*firestorepb.Value, error) {
	values, err := types.ToValues(srcs...)
	if err != nil {
		return nil, fmt.Errorf("cursor %w", err)
	}
	return values, nil
}

func newCursor(values []*firestorepb.Value, before bool) *firestorepb.Cursor {
	cloned := make([]*firestorepb.Value, len(values))
	for i, v := range values {
		if v == nil {
			cloned[i] = types.Null()
			continue
		}
		cloned[i] = proto.Clone(v).(*firestorepb.Value)
	}
	return &firestorepb.Cursor{Values: cloned, Before: before}
}

func cloneCursor(c *firestorepb.Cursor) *firestorepb.Cursor {
	if c == nil {
		return nil
	}
	return proto.Clone(c).(*firestorepb.Cursor)
}
