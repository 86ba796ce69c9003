// Package types provides conversion between Go values and document wire values
package types

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/theory-cloud/structuredquery/pkg/errors"
	"github.com/theory-cloud/structuredquery/pkg/naming"
)

// Converter is the generic serializer: it turns arbitrary Go values into wire
// values, consulting registered custom converters first.
type Converter struct {
	// customConverters allows registration of custom type converters
	customConverters map[reflect.Type]CustomConverter
	logger           *zap.Logger
	convention       naming.Convention
	mu               sync.RWMutex
}

var (
	timeType        = reflect.TypeOf(time.Time{})
	uuidType        = reflect.TypeOf(uuid.UUID{})
	wireValueType   = reflect.TypeOf((*firestorepb.Value)(nil))
	timestampPBType = reflect.TypeOf((*timestamppb.Timestamp)(nil))
	latLngType      = reflect.TypeOf((*latlng.LatLng)(nil))
	valueSourceType = reflect.TypeOf((*ValueSource)(nil)).Elem()
)

var defaultConverter = NewConverter()

// Default returns the converter used by Serialize.
func Default() *Converter {
	return defaultConverter
}

// CustomConverter converts values of one registered Go type to wire values
type CustomConverter interface {
	ToValue(value any) (*firestorepb.Value, error)
}

// ConverterFunc adapts a function to CustomConverter.
type ConverterFunc func(value any) (*firestorepb.Value, error)

// ToValue calls f(value).
func (f ConverterFunc) ToValue(value any) (*firestorepb.Value, error) {
	return f(value)
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger attaches a logger for registry diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNamingConvention sets how untagged struct fields are named.
func WithNamingConvention(convention naming.Convention) Option {
	return func(c *Converter) {
		c.convention = convention
	}
}

// NewConverter creates a new type converter
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		customConverters: make(map[reflect.Type]CustomConverter),
		logger:           zap.NewNop(),
		convention:       naming.AsIs,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterConverter registers a custom converter for a specific type
func (c *Converter) RegisterConverter(typ reflect.Type, converter CustomConverter) {
	if typ == nil || converter == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.customConverters[typ]; exists {
		c.logger.Debug("replacing custom converter", zap.Stringer("type", typ))
	}
	c.customConverters[typ] = converter
}

// HasCustomConverter returns true if a custom converter exists for the given type.
func (c *Converter) HasCustomConverter(typ reflect.Type) bool {
	_, ok := c.lookupConverter(typ)
	return ok
}

// lookupConverter returns a registered converter for the provided type, walking pointer
// indirections until a match is found or no further pointer element exists.
func (c *Converter) lookupConverter(typ reflect.Type) (CustomConverter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if typ == nil {
		return nil, false
	}

	for {
		if converter, ok := c.customConverters[typ]; ok {
			return converter, true
		}

		if typ.Kind() != reflect.Ptr {
			break
		}
		typ = typ.Elem()
	}

	return nil, false
}

// converterFor matches typ exactly; pointers reach their element's converter
// through the dereference in toValue.
func (c *Converter) converterFor(typ reflect.Type) (CustomConverter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	converter, ok := c.customConverters[typ]
	return converter, ok
}

// Source binds value to this converter without converting it yet.
func (c *Converter) Source(value any) ValueSource {
	return serializedSource{converter: c, value: value}
}

// ToValue converts a Go value to a wire value. Failures are *errors.ConversionError.
func (c *Converter) ToValue(value any) (*firestorepb.Value, error) {
	if value == nil {
		return Null(), nil
	}

	v := reflect.ValueOf(value)
	out, err := c.toValue(v)
	if err != nil {
		return nil, errors.NewConversionError(errors.OriginSerializer, v.Type().String(), err)
	}
	return out, nil
}

// toValue handles the actual conversion based on reflection
func (c *Converter) toValue(v reflect.Value) (*firestorepb.Value, error) {
	if !v.IsValid() {
		return Null(), nil
	}

	if (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && v.IsNil() {
		return Null(), nil
	}

	if converter, exists := c.converterFor(v.Type()); exists {
		out, err := converter.ToValue(v.Interface())
		if err != nil {
			return nil, errors.NewConversionError(errors.OriginCustom, v.Type().String(), err)
		}
		return nilAsNull(out), nil
	}

	if out, handled, err := c.wellKnownToValue(v); handled {
		return out, err
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return c.toValue(v.Elem())

	case reflect.String:
		return String(v.String()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Integer(v.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %s value %d overflows int64", errors.ErrUnsupportedType, v.Type(), u)
		}
		return Integer(int64(u)), nil

	case reflect.Float32, reflect.Float64:
		return Double(v.Float()), nil

	case reflect.Bool:
		return Bool(v.Bool()), nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			// []byte -> bytes
			return Bytes(append([]byte(nil), v.Bytes()...)), nil
		}
		if v.IsNil() {
			return Null(), nil
		}
		return c.sliceToArray(v)

	case reflect.Array:
		return c.sliceToArray(v)

	case reflect.Map:
		return c.mapToMapValue(v)

	case reflect.Struct:
		return c.structToMapValue(v)

	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedType, v.Type())
	}
}

// wellKnownToValue covers wire values, self-converting values, and the
// library types that have a dedicated wire representation.
func (c *Converter) wellKnownToValue(v reflect.Value) (*firestorepb.Value, bool, error) {
	switch v.Type() {
	case wireValueType:
		wire, _ := v.Interface().(*firestorepb.Value)
		out, _ := proto.Clone(wire).(*firestorepb.Value)
		return out, true, nil
	case timestampPBType:
		ts, _ := v.Interface().(*timestamppb.Timestamp)
		out, _ := proto.Clone(ts).(*timestamppb.Timestamp)
		return &firestorepb.Value{ValueType: &firestorepb.Value_TimestampValue{TimestampValue: out}}, true, nil
	case latLngType:
		ll, _ := v.Interface().(*latlng.LatLng)
		out, _ := proto.Clone(ll).(*latlng.LatLng)
		return &firestorepb.Value{ValueType: &firestorepb.Value_GeoPointValue{GeoPointValue: out}}, true, nil
	case timeType:
		t, _ := v.Interface().(time.Time)
		return Timestamp(t), true, nil
	case uuidType:
		id, _ := v.Interface().(uuid.UUID)
		return String(id.String()), true, nil
	}

	if v.Type().Implements(valueSourceType) && v.CanInterface() {
		src, _ := v.Interface().(ValueSource)
		out, err := src.ToValue()
		if err != nil {
			return nil, true, errors.NewConversionError(errors.OriginCustom, v.Type().String(), err)
		}
		return nilAsNull(out), true, nil
	}

	return nil, false, nil
}

// sliceToArray converts a slice or array to an array value
func (c *Converter) sliceToArray(v reflect.Value) (*firestorepb.Value, error) {
	list := make([]*firestorepb.Value, v.Len())

	for i := 0; i < v.Len(); i++ {
		elem, err := c.toValue(v.Index(i))
		if err != nil {
			return nil, withContext(err, "index %d", i)
		}
		list[i] = elem
	}

	return Array(list...), nil
}

// mapToMapValue converts a string-keyed map to a map value
func (c *Converter) mapToMapValue(v reflect.Value) (*firestorepb.Value, error) {
	if v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: map keys must be strings, got %s", errors.ErrUnsupportedType, v.Type().Key())
	}
	if v.IsNil() {
		return Null(), nil
	}

	m := make(map[string]*firestorepb.Value, v.Len())

	iter := v.MapRange()
	for iter.Next() {
		keyStr := iter.Key().String()

		elem, err := c.toValue(iter.Value())
		if err != nil {
			return nil, withContext(err, "key %s", keyStr)
		}
		m[keyStr] = elem
	}

	return Map(m), nil
}

// structToMapValue converts a struct to a map value
func (c *Converter) structToMapValue(v reflect.Value) (*firestorepb.Value, error) {
	m, err := c.structFields(v)
	if err != nil {
		return nil, err
	}
	return Map(m), nil
}

// structFields collects the document fields of a struct. Fields of untagged
// embedded structs are promoted; a field of the outer struct wins over a
// promoted field with the same name.
func (c *Converter) structFields(v reflect.Value) (map[string]*firestorepb.Value, error) {
	m := make(map[string]*firestorepb.Value)
	var promoted []map[string]*firestorepb.Value
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if inner, ok := c.embeddedStruct(field, fieldValue); ok {
			if !inner.IsValid() {
				continue
			}
			sub, err := c.structFields(inner)
			if err != nil {
				return nil, withContext(err, "field %s", field.Name)
			}
			promoted = append(promoted, sub)
			continue
		}

		if !field.IsExported() {
			continue
		}

		name, opts, skip := naming.ResolveFieldName(field, c.convention)
		if skip {
			continue
		}

		if opts.OmitEmpty && fieldValue.IsZero() {
			continue
		}

		elem, err := c.toValue(fieldValue)
		if err != nil {
			return nil, withContext(err, "field %s", field.Name)
		}

		m[name] = elem
	}

	for _, sub := range promoted {
		for name, elem := range sub {
			if _, exists := m[name]; !exists {
				m[name] = elem
			}
		}
	}
	return m, nil
}

// embeddedStruct reports whether field is an embedded struct whose fields are
// promoted, and returns the struct to read them from. The returned value is
// invalid when there is nothing to promote: a nil embedded pointer or a field
// tagged "-". Embedded structs with a tag name, a custom converter or a wire
// representation of their own stay nested.
func (c *Converter) embeddedStruct(field reflect.StructField, v reflect.Value) (reflect.Value, bool) {
	if !field.Anonymous {
		return reflect.Value{}, false
	}

	typ := field.Type
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	if typ == timeType || field.Type.Implements(valueSourceType) || c.HasCustomConverter(field.Type) {
		return reflect.Value{}, false
	}

	if _, _, skip := naming.ResolveFieldName(field, c.convention); skip {
		return reflect.Value{}, true
	}
	if hasTagName(field) {
		return reflect.Value{}, false
	}

	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, true
		}
		v = v.Elem()
	}
	return v, true
}

func hasTagName(field reflect.StructField) bool {
	tag, ok := field.Tag.Lookup(naming.TagName)
	if !ok {
		tag, ok = field.Tag.Lookup("json")
	}
	if !ok {
		return false
	}
	name, _, _ := strings.Cut(tag, ",")
	return strings.TrimSpace(name) != ""
}

// withContext prefixes err with the location it came from. A ConversionError
// stays on top so the outer wrap keeps its origin and the location.
func withContext(err error, format string, args ...any) error {
	location := fmt.Sprintf(format, args...)
	if ce, ok := err.(*errors.ConversionError); ok {
		return &errors.ConversionError{
			Origin: ce.Origin,
			Type:   ce.Type,
			Err:    fmt.Errorf("%s: %w", location, ce.Err),
		}
	}
	return fmt.Errorf("%s: %w", location, err)
}

func nilAsNull(v *firestorepb.Value) *firestorepb.Value {
	if v == nil {
		return Null()
	}
	return v
}
