package query

import (
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/protobuf/proto"
)

// Order sorts results by one field.
type Order struct {
	field     FieldPath
	direction Direction
}

// OrderSource is anything that renders to a wire order.
type OrderSource interface {
	StructuredQueryOrder() *firestorepb.StructuredQuery_Order
}

// NewOrder pairs path with direction.
func NewOrder(path FieldPath, direction Direction) Order {
	return Order{field: path, direction: direction}
}

func (o Order) Field() FieldPath { return o.field }

func (o Order) Direction() Direction { return o.direction }

// StructuredQueryOrder renders o. It panics on an invalid direction.
func (o Order) StructuredQueryOrder() *firestorepb.StructuredQuery_Order {
	return &firestorepb.StructuredQuery_Order{
		Field:     o.field.FieldReference(),
		Direction: o.direction.Wire(),
	}
}

type wireOrder struct {
	order *firestorepb.StructuredQuery_Order
}

// WireOrder wraps an order that is already in wire form.
func WireOrder(order *firestorepb.StructuredQuery_Order) OrderSource {
	return wireOrder{order: order}
}

func (w wireOrder) StructuredQueryOrder() *firestorepb.StructuredQuery_Order {
	if w.order == nil {
		return nil
	}
	return proto.Clone(w.order).(*firestorepb.StructuredQuery_Order)
}
