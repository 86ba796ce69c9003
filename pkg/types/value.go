package types

import (
	"fmt"

	"cloud.google.com/go/firestore/apiv1/firestorepb"

	"github.com/theory-cloud/structuredquery/pkg/errors"
)

// ValueSource is anything that can produce a wire value, possibly failing.
//
// Three kinds of implementations exist: Wire wraps a value that is already in
// wire form, Serialize hands an arbitrary Go value to the generic serializer,
// and any caller type may implement ToValue itself for types the serializer
// does not cover.
type ValueSource interface {
	ToValue() (*firestorepb.Value, error)
}

// ToValue resolves src into a wire value. Every failure is returned as an
// *errors.ConversionError, so callers can match errors.ErrValueConversion
// without caring which path failed. A nil source or a nil result is a null value.
func ToValue(src ValueSource) (*firestorepb.Value, error) {
	if src == nil {
		return Null(), nil
	}

	v, err := src.ToValue()
	if err != nil {
		return nil, errors.NewConversionError(errors.OriginCustom, fmt.Sprintf("%T", src), err)
	}
	if v == nil {
		return Null(), nil
	}
	return v, nil
}

// ToValues resolves every source in order and stops at the first failure.
func ToValues(srcs ...ValueSource) ([]*firestorepb.Value, error) {
	values := make([]*firestorepb.Value, 0, len(srcs))
	for i, src := range srcs {
		v, err := ToValue(src)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		values = append(values, v)
	}
	return values, nil
}

type wireSource struct {
	value *firestorepb.Value
}

// Wire returns v unchanged when converted. A nil v converts to a null value.
func Wire(v *firestorepb.Value) ValueSource {
	return wireSource{value: v}
}

func (w wireSource) ToValue() (*firestorepb.Value, error) {
	if w.value == nil {
		return Null(), nil
	}
	return w.value, nil
}

type serializedSource struct {
	converter *Converter
	value     any
}

func (s serializedSource) ToValue() (*firestorepb.Value, error) {
	return s.converter.ToValue(s.value)
}

// Serialize defers v to the default Converter.
func Serialize(v any) ValueSource {
	return defaultConverter.Source(v)
}

// SerializeAll is Serialize applied to each value, preserving order.
func SerializeAll(values ...any) []ValueSource {
	srcs := make([]ValueSource, len(values))
	for i, v := range values {
		srcs[i] = Serialize(v)
	}
	return srcs
}

// Func adapts a plain function to ValueSource.
type Func func() (*firestorepb.Value, error)

// ToValue calls f.
func (f Func) ToValue() (*firestorepb.Value, error) {
	return f()
}
