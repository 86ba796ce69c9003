package query

import (
	"slices"
	"strings"

	"cloud.google.com/go/firestore/apiv1/firestorepb"

	"github.com/theory-cloud/structuredquery/pkg/types"
)

// FieldPath identifies a possibly nested document field.
//
// The zero value and NewFieldPath() hold no segments and render as "". The
// service rejects an empty field reference, so callers supply at least one
// segment.
type FieldPath struct {
	segments []string
}

// Raw stores path verbatim as a single segment. No escaping is applied, so
// the caller is responsible for any quoting the path needs.
func Raw(path string) FieldPath {
	return FieldPath{segments: []string{path}}
}

// NewFieldPath builds a path from plain segments, escaping each one
// independently.
func NewFieldPath(segments ...string) FieldPath {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = EscapeSegment(s)
	}
	return FieldPath{segments: escaped}
}

// Segments returns a copy of the stored, already escaped segments.
func (p FieldPath) Segments() []string {
	return slices.Clone(p.segments)
}

// String renders the field reference string.
func (p FieldPath) String() string {
	return strings.Join(p.segments, ".")
}

// FieldReference renders p as a wire field reference.
func (p FieldPath) FieldReference() *firestorepb.StructuredQuery_FieldReference {
	return &firestorepb.StructuredQuery_FieldReference{FieldPath: p.String()}
}

// Equal reports whether p and other hold the same segments.
func (p FieldPath) Equal(other FieldPath) bool {
	return slices.Equal(p.segments, other.segments)
}

// Compare orders paths segment by segment; a prefix sorts first.
func (p FieldPath) Compare(other FieldPath) int {
	return slices.Compare(p.segments, other.segments)
}

// IsSimpleSegment reports whether s can appear in a field path unquoted:
// ASCII letters, digits and underscores, not starting with a digit.
func IsSimpleSegment(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// EscapeSegment returns s unchanged when it is simple, otherwise wrapped in
// backticks with backticks and backslashes escaped. Every other byte is copied
// as is, including bytes that are not valid UTF-8.
func EscapeSegment(s string) string {
	if IsSimpleSegment(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('`')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '`':
			b.WriteString("\\`")
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('`')
	return b.String()
}

// LessThan returns the filter p < v.
func (p FieldPath) LessThan(v types.ValueSource) (Filter, error) {
	return FieldFilter(p, LessThan, v)
}

// LessThanOrEqual returns the filter p <= v.
func (p FieldPath) LessThanOrEqual(v types.ValueSource) (Filter, error) {
	return FieldFilter(p, LessThanOrEqual, v)
}

// GreaterThan returns the filter p > v.
func (p FieldPath) GreaterThan(v types.ValueSource) (Filter, error) {
	return FieldFilter(p, GreaterThan, v)
}

// GreaterThanOrEqual returns the filter p >= v.
func (p FieldPath) GreaterThanOrEqual(v types.ValueSource) (Filter, error) {
	return FieldFilter(p, GreaterThanOrEqual, v)
}

// EqualTo returns the filter p == v.
func (p FieldPath) EqualTo(v types.ValueSource) (Filter, error) {
	return FieldFilter(p, Equal, v)
}

// NotEqualTo returns the filter p != v.
func (p FieldPath) NotEqualTo(v types.ValueSource) (Filter, error) {
	return FieldFilter(p, NotEqual, v)
}

func (p FieldPath) ArrayContains(v types.ValueSource) (Filter, error) {
	return FieldFilter(p, ArrayContains, v)
}

func (p FieldPath) ArrayContainsAny(v types.ValueSource) (Filter, error) {
	return FieldFilter(p, ArrayContainsAny, v)
}

func (p FieldPath) In(v types.ValueSource) (Filter, error) {
	return FieldFilter(p, In, v)
}

func (p FieldPath) NotIn(v types.ValueSource) (Filter, error) {
	return FieldFilter(p, NotIn, v)
}

func (p FieldPath) IsNaN() Filter {
	return UnaryFilter(p, IsNaN)
}

func (p FieldPath) IsNotNaN() Filter {
	return UnaryFilter(p, IsNotNaN)
}

func (p FieldPath) IsNull() Filter {
	return UnaryFilter(p, IsNull)
}

func (p FieldPath) IsNotNull() Filter {
	return UnaryFilter(p, IsNotNull)
}

// Ascending orders by p, smallest first.
func (p FieldPath) Ascending() Order {
	return NewOrder(p, Ascending)
}

// Descending orders by p, largest first.
func (p FieldPath) Descending() Order {
	return NewOrder(p, Descending)
}
