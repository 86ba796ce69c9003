package query

import (
	"fmt"
	"slices"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/protobuf/proto"

	"github.com/theory-cloud/structuredquery/pkg/errors"
	"github.com/theory-cloud/structuredquery/pkg/types"
)

// FilterKind identifies which variant a Filter holds.
type FilterKind int

const (
	// FieldFilterKind compares a field with a value.
	FieldFilterKind FilterKind = iota + 1
	// UnaryFilterKind tests a field for null or NaN.
	UnaryFilterKind
	// CompositeFilterKind combines sub-filters with AND or OR.
	CompositeFilterKind
)

func (k FilterKind) String() string {
	switch k {
	case FieldFilterKind:
		return "field"
	case UnaryFilterKind:
		return "unary"
	case CompositeFilterKind:
		return "composite"
	default:
		return fmt.Sprintf("FilterKind(%d)", int(k))
	}
}

// Filter is an immutable filter tree node. Exactly one variant is populated,
// selected by Kind. The zero Filter is invalid and panics when rendered.
type Filter struct {
	value       *firestorepb.Value
	field       FieldPath
	operands    []Filter
	kind        FilterKind
	fieldOp     FieldOperator
	unaryOp     UnaryOperator
	compositeOp CompositeOperator
}

// FilterSource is anything that renders to a wire filter: a built Filter or
// a pre-rendered one wrapped with WireFilter.
type FilterSource interface {
	StructuredQueryFilter() *firestorepb.StructuredQuery_Filter
}

// FieldFilter builds path op value. The value is converted once, here; a
// conversion failure is returned as is. Operator and value compatibility is
// left to the service.
func FieldFilter(path FieldPath, op FieldOperator, value types.ValueSource) (Filter, error) {
	if !op.Valid() {
		return Filter{}, fmt.Errorf("%w: %s", errors.ErrInvalidOperator, op)
	}

	v, err := types.ToValue(value)
	if err != nil {
		return Filter{}, err
	}

	return Filter{
		kind:    FieldFilterKind,
		field:   path,
		fieldOp: op,
		value:   proto.Clone(v).(*firestorepb.Value),
	}, nil
}

// UnaryFilter builds a value-less test on path.
func UnaryFilter(path FieldPath, op UnaryOperator) Filter {
	return Filter{
		kind:    UnaryFilterKind,
		field:   path,
		unaryOp: op,
	}
}

// And matches documents that satisfy every operand. Any number of operands,
// including zero, is accepted.
func And(filters ...Filter) Filter {
	return composite(CompositeAnd, filters)
}

// Or matches documents that satisfy at least one operand.
func Or(filters ...Filter) Filter {
	return composite(CompositeOr, filters)
}

func composite(op CompositeOperator, filters []Filter) Filter {
	operands := make([]Filter, len(filters))
	copy(operands, filters)
	return Filter{
		kind:        CompositeFilterKind,
		compositeOp: op,
		operands:    operands,
	}
}

// Kind reports which variant f holds.
func (f Filter) Kind() FilterKind { return f.kind }

// Field returns the filtered field of a field or unary filter.
func (f Filter) Field() FieldPath { return f.field }

// FieldOp returns the operator of a field filter.
func (f Filter) FieldOp() FieldOperator { return f.fieldOp }

// UnaryOp returns the operator of a unary filter.
func (f Filter) UnaryOp() UnaryOperator { return f.unaryOp }

// CompositeOp returns the operator of a composite filter.
func (f Filter) CompositeOp() CompositeOperator { return f.compositeOp }

// Value returns a copy of a field filter's value, or nil for other kinds.
func (f Filter) Value() *firestorepb.Value {
	if f.value == nil {
		return nil
	}
	return proto.Clone(f.value).(*firestorepb.Value)
}

// Operands returns a copy of a composite filter's operands.
func (f Filter) Operands() []Filter {
	return slices.Clone(f.operands)
}

// StructuredQueryFilter renders f. It panics if f is not a valid filter.
func (f Filter) StructuredQueryFilter() *firestorepb.StructuredQuery_Filter {
	switch f.kind {
	case FieldFilterKind:
		return &firestorepb.StructuredQuery_Filter{
			FilterType: &firestorepb.StructuredQuery_Filter_FieldFilter{
				FieldFilter: &firestorepb.StructuredQuery_FieldFilter{
					Field: f.field.FieldReference(),
					Op:    f.fieldOp.Wire(),
					Value: f.Value(),
				},
			},
		}

	case UnaryFilterKind:
		return &firestorepb.StructuredQuery_Filter{
			FilterType: &firestorepb.StructuredQuery_Filter_UnaryFilter{
				UnaryFilter: &firestorepb.StructuredQuery_UnaryFilter{
					Op: f.unaryOp.Wire(),
					OperandType: &firestorepb.StructuredQuery_UnaryFilter_Field{
						Field: f.field.FieldReference(),
					},
				},
			},
		}

	case CompositeFilterKind:
		filters := make([]*firestorepb.StructuredQuery_Filter, len(f.operands))
		for i, operand := range f.operands {
			filters[i] = operand.StructuredQueryFilter()
		}
		return &firestorepb.StructuredQuery_Filter{
			FilterType: &firestorepb.StructuredQuery_Filter_CompositeFilter{
				CompositeFilter: &firestorepb.StructuredQuery_CompositeFilter{
					Op:      f.compositeOp.Wire(),
					Filters: filters,
				},
			},
		}

	default:
		panic(fmt.Sprintf("query: cannot render %s", f.kind))
	}
}

type wireFilter struct {
	filter *firestorepb.StructuredQuery_Filter
}

// WireFilter wraps a filter that is already in wire form. It is cloned when
// rendered, so later changes to filter are not observed.
func WireFilter(filter *firestorepb.StructuredQuery_Filter) FilterSource {
	return wireFilter{filter: filter}
}

func (w wireFilter) StructuredQueryFilter() *firestorepb.StructuredQuery_Filter {
	if w.filter == nil {
		return nil
	}
	return proto.Clone(w.filter).(*firestorepb.StructuredQuery_Filter)
}
