package query

import (
	"fmt"
	"strings"

	"cloud.google.com/go/firestore/apiv1/firestorepb"

	"github.com/theory-cloud/structuredquery/pkg/errors"
)

// FieldOperator compares a field against a value.
type FieldOperator int

// Field operators. The zero value is not a valid operator.
const (
	LessThan FieldOperator = iota + 1
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	Equal
	NotEqual
	ArrayContains
	ArrayContainsAny
	In
	NotIn
)

// UnaryOperator tests a field without a value.
type UnaryOperator int

// Unary operators. The zero value is not a valid operator.
const (
	IsNaN UnaryOperator = iota + 1
	IsNotNaN
	IsNull
	IsNotNull
)

// CompositeOperator combines sub-filters.
type CompositeOperator int

// Composite operators. The zero value is not a valid operator.
const (
	CompositeAnd CompositeOperator = iota + 1
	CompositeOr
)

// Direction is a sort direction.
type Direction int

// Directions. The zero value is not a valid direction.
const (
	Ascending Direction = iota + 1
	Descending
)

var fieldOperatorWire = map[FieldOperator]firestorepb.StructuredQuery_FieldFilter_Operator{
	LessThan:           firestorepb.StructuredQuery_FieldFilter_LESS_THAN,
	LessThanOrEqual:    firestorepb.StructuredQuery_FieldFilter_LESS_THAN_OR_EQUAL,
	GreaterThan:        firestorepb.StructuredQuery_FieldFilter_GREATER_THAN,
	GreaterThanOrEqual: firestorepb.StructuredQuery_FieldFilter_GREATER_THAN_OR_EQUAL,
	Equal:              firestorepb.StructuredQuery_FieldFilter_EQUAL,
	NotEqual:           firestorepb.StructuredQuery_FieldFilter_NOT_EQUAL,
	ArrayContains:      firestorepb.StructuredQuery_FieldFilter_ARRAY_CONTAINS,
	ArrayContainsAny:   firestorepb.StructuredQuery_FieldFilter_ARRAY_CONTAINS_ANY,
	In:                 firestorepb.StructuredQuery_FieldFilter_IN,
	NotIn:              firestorepb.StructuredQuery_FieldFilter_NOT_IN,
}

var unaryOperatorWire = map[UnaryOperator]firestorepb.StructuredQuery_UnaryFilter_Operator{
	IsNaN:     firestorepb.StructuredQuery_UnaryFilter_IS_NAN,
	IsNotNaN:  firestorepb.StructuredQuery_UnaryFilter_IS_NOT_NAN,
	IsNull:    firestorepb.StructuredQuery_UnaryFilter_IS_NULL,
	IsNotNull: firestorepb.StructuredQuery_UnaryFilter_IS_NOT_NULL,
}

var compositeOperatorWire = map[CompositeOperator]firestorepb.StructuredQuery_CompositeFilter_Operator{
	CompositeAnd: firestorepb.StructuredQuery_CompositeFilter_AND,
	CompositeOr:  firestorepb.StructuredQuery_CompositeFilter_OR,
}

var directionWire = map[Direction]firestorepb.StructuredQuery_Direction{
	Ascending:  firestorepb.StructuredQuery_ASCENDING,
	Descending: firestorepb.StructuredQuery_DESCENDING,
}

// Symbolic spellings accepted by the Parse functions in addition to the
// protocol names. Keys are normalized.
var fieldOperatorAliases = map[string]FieldOperator{
	"<":   LessThan,
	"lt":  LessThan,
	"<=":  LessThanOrEqual,
	"le":  LessThanOrEqual,
	"lte": LessThanOrEqual,
	">":   GreaterThan,
	"gt":  GreaterThan,
	">=":  GreaterThanOrEqual,
	"ge":  GreaterThanOrEqual,
	"gte": GreaterThanOrEqual,
	"=":   Equal,
	"==":  Equal,
	"eq":  Equal,
	"!=":  NotEqual,
	"<>":  NotEqual,
	"ne":  NotEqual,
}

var directionAliases = map[string]Direction{
	"asc":  Ascending,
	"desc": Descending,
}

// Wire returns the protocol operator. It panics on an invalid operator.
func (op FieldOperator) Wire() firestorepb.StructuredQuery_FieldFilter_Operator {
	w, ok := fieldOperatorWire[op]
	if !ok {
		panic(fmt.Sprintf("query: invalid field operator %d", int(op)))
	}
	return w
}

// Valid reports whether op is one of the declared operators.
func (op FieldOperator) Valid() bool {
	_, ok := fieldOperatorWire[op]
	return ok
}

// String returns the protocol name, e.g. "ARRAY_CONTAINS".
func (op FieldOperator) String() string {
	if w, ok := fieldOperatorWire[op]; ok {
		return w.String()
	}
	return fmt.Sprintf("FieldOperator(%d)", int(op))
}

// Wire returns the protocol operator. It panics on an invalid operator.
func (op UnaryOperator) Wire() firestorepb.StructuredQuery_UnaryFilter_Operator {
	w, ok := unaryOperatorWire[op]
	if !ok {
		panic(fmt.Sprintf("query: invalid unary operator %d", int(op)))
	}
	return w
}

func (op UnaryOperator) Valid() bool {
	_, ok := unaryOperatorWire[op]
	return ok
}

func (op UnaryOperator) String() string {
	if w, ok := unaryOperatorWire[op]; ok {
		return w.String()
	}
	return fmt.Sprintf("UnaryOperator(%d)", int(op))
}

// Wire returns the protocol operator. It panics on an invalid operator.
func (op CompositeOperator) Wire() firestorepb.StructuredQuery_CompositeFilter_Operator {
	w, ok := compositeOperatorWire[op]
	if !ok {
		panic(fmt.Sprintf("query: invalid composite operator %d", int(op)))
	}
	return w
}

func (op CompositeOperator) String() string {
	if w, ok := compositeOperatorWire[op]; ok {
		return w.String()
	}
	return fmt.Sprintf("CompositeOperator(%d)", int(op))
}

// Wire returns the protocol direction. It panics on an invalid direction.
func (d Direction) Wire() firestorepb.StructuredQuery_Direction {
	w, ok := directionWire[d]
	if !ok {
		panic(fmt.Sprintf("query: invalid direction %d", int(d)))
	}
	return w
}

func (d Direction) Valid() bool {
	_, ok := directionWire[d]
	return ok
}

func (d Direction) String() string {
	if w, ok := directionWire[d]; ok {
		return w.String()
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// normalizeOperatorName folds case and drops separators so that
// "ARRAY_CONTAINS", "array-contains" and "ArrayContains" compare equal.
func normalizeOperatorName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// ParseFieldOperator resolves a protocol name ("GREATER_THAN"), a Go-style
// name ("GreaterThan") or a symbol (">").
func ParseFieldOperator(s string) (FieldOperator, error) {
	name := normalizeOperatorName(s)
	if op, ok := fieldOperatorAliases[name]; ok {
		return op, nil
	}
	for op, w := range fieldOperatorWire {
		if normalizeOperatorName(w.String()) == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown field operator %q", errors.ErrInvalidOperator, s)
}

// ParseUnaryOperator resolves "IS_NULL", "isNull", "is-null" and so on.
func ParseUnaryOperator(s string) (UnaryOperator, error) {
	name := normalizeOperatorName(s)
	for op, w := range unaryOperatorWire {
		if normalizeOperatorName(w.String()) == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown unary operator %q", errors.ErrInvalidOperator, s)
}

// ParseCompositeOperator resolves "AND" or "OR" in any case.
func ParseCompositeOperator(s string) (CompositeOperator, error) {
	name := normalizeOperatorName(s)
	for op, w := range compositeOperatorWire {
		if normalizeOperatorName(w.String()) == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown composite operator %q", errors.ErrInvalidOperator, s)
}

// ParseDirection resolves "ASCENDING"/"asc" and "DESCENDING"/"desc". An
// empty string is Ascending.
func ParseDirection(s string) (Direction, error) {
	name := normalizeOperatorName(s)
	if name == "" {
		return Ascending, nil
	}
	if d, ok := directionAliases[name]; ok {
		return d, nil
	}
	for d, w := range directionWire {
		if normalizeOperatorName(w.String()) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown direction %q", errors.ErrInvalidOperator, s)
}
