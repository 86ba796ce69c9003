// Package definition loads declarative query documents written in YAML or
// JSON and builds them into query.Query values.
package definition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/structuredquery/pkg/errors"
	"github.com/theory-cloud/structuredquery/pkg/query"
)

// Version is the only document version understood by ParseDocument.
const Version = "1"

type Document struct {
	Version string     `yaml:"version" json:"version"`
	Parent  string     `yaml:"parent" json:"parent"`
	Queries []QueryDef `yaml:"queries" json:"queries"`
}

type QueryDef struct {
	Name            string          `yaml:"name" json:"name"`
	Collection      string          `yaml:"collection" json:"collection"`
	CollectionGroup string          `yaml:"collection_group" json:"collection_group"`
	Select          []Path          `yaml:"select" json:"select"`
	Where           *FilterDef      `yaml:"where" json:"where"`
	OrderBy         []OrderDef      `yaml:"order_by" json:"order_by"`
	StartAt         json.RawMessage `yaml:"start_at" json:"start_at"`
	StartAfter      json.RawMessage `yaml:"start_after" json:"start_after"`
	EndAt           json.RawMessage `yaml:"end_at" json:"end_at"`
	EndBefore       json.RawMessage `yaml:"end_before" json:"end_before"`
	Limit           *int32          `yaml:"limit" json:"limit"`
	FindNearest     *FindNearestDef `yaml:"find_nearest" json:"find_nearest"`
	Offset          int32           `yaml:"offset" json:"offset"`
}

// FilterDef is one node of a filter tree. Exactly one of Field, And or Or
// is set. A field node with a unary operator (IS_NULL, IS_NAN, ...) has no
// value; any other operator requires one.
type FilterDef struct {
	Field *Path           `yaml:"field" json:"field"`
	Value json.RawMessage `yaml:"value" json:"value"`
	Op    string          `yaml:"op" json:"op"`
	And   []FilterDef     `yaml:"and" json:"and"`
	Or    []FilterDef     `yaml:"or" json:"or"`
}

type OrderDef struct {
	Field     Path   `yaml:"field" json:"field"`
	Direction string `yaml:"direction" json:"direction"`
}

type FindNearestDef struct {
	DistanceThreshold   *float64  `yaml:"distance_threshold" json:"distance_threshold"`
	VectorField         Path      `yaml:"vector_field" json:"vector_field"`
	DistanceMeasure     string    `yaml:"distance_measure" json:"distance_measure"`
	DistanceResultField string    `yaml:"distance_result_field" json:"distance_result_field"`
	QueryVector         []float64 `yaml:"query_vector" json:"query_vector"`
	Limit               int32     `yaml:"limit" json:"limit"`
}

// Path is a field path as written in a document. A string is taken
// verbatim, like query.Raw. A list of strings is escaped segment by
// segment, like query.NewFieldPath.
type Path struct {
	raw      string
	segments []string
	isList   bool
}

// UnmarshalJSON accepts a string or a list of strings.
func (p *Path) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*p = Path{raw: raw}
		return nil
	}

	var segments []string
	if err := json.Unmarshal(data, &segments); err != nil {
		return fmt.Errorf("field path must be a string or a list of strings")
	}
	*p = Path{segments: segments, isList: true}
	return nil
}

// FieldPath converts p to a query.FieldPath.
func (p Path) FieldPath() query.FieldPath {
	if p.isList {
		return query.NewFieldPath(p.segments...)
	}
	return query.Raw(p.raw)
}

func (p Path) empty() bool {
	if p.isList {
		return len(p.segments) == 0
	}
	return strings.TrimSpace(p.raw) == ""
}

// ParseDocument decodes a YAML or JSON query document and validates its
// structure. Values are not converted until Build.
func ParseDocument(data []byte) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: parse YAML/JSON: %v", errors.ErrInvalidDefinition, err)
	}
	if err := checkIntegerLiterals(&node); err != nil {
		return nil, err
	}

	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: parse YAML/JSON: %v", errors.ErrInvalidDefinition, err)
	}

	normalized, err := normalizeJSONCompatible(raw, "document")
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal normalized document: %v", errors.ErrInvalidDefinition, err)
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode document: %v", errors.ErrInvalidDefinition, err)
	}

	if err := validateDocument(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindQuery returns the query named name.
func FindQuery(doc *Document, name string) (*QueryDef, bool) {
	if doc == nil {
		return nil, false
	}
	for i := range doc.Queries {
		if doc.Queries[i].Name == name {
			return &doc.Queries[i], true
		}
	}
	return nil, false
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errors.ErrInvalidDefinition, fmt.Sprintf(format, args...))
}

func validateDocument(doc *Document) error {
	if doc == nil {
		return invalid("document is nil")
	}
	if doc.Version != Version {
		return invalid("unsupported version: %q", doc.Version)
	}
	if len(doc.Queries) == 0 {
		return invalid("document must include queries[]")
	}

	seen := make(map[string]struct{}, len(doc.Queries))
	for i := range doc.Queries {
		q := &doc.Queries[i]
		if err := validateQuery(q); err != nil {
			return err
		}
		if _, ok := seen[q.Name]; ok {
			return invalid("duplicate query %s", q.Name)
		}
		seen[q.Name] = struct{}{}
	}
	return nil
}

func validateQuery(q *QueryDef) error {
	if isBlank(q.Name) {
		return invalid("query missing name")
	}

	hasCollection := !isBlank(q.Collection)
	hasGroup := !isBlank(q.CollectionGroup)
	if hasCollection == hasGroup {
		return invalid("query %s: exactly one of collection or collection_group is required", q.Name)
	}

	for i, p := range q.Select {
		if p.empty() {
			return invalid("query %s: select[%d] is empty", q.Name, i)
		}
	}

	if q.Where != nil {
		if err := validateFilter(*q.Where, "where"); err != nil {
			return invalid("query %s: %v", q.Name, err)
		}
	}

	for i, o := range q.OrderBy {
		if o.Field.empty() {
			return invalid("query %s: order_by[%d] missing field", q.Name, i)
		}
		if _, err := query.ParseDirection(o.Direction); err != nil {
			return invalid("query %s: order_by[%d]: %v", q.Name, i, err)
		}
	}

	if present(q.StartAt) && present(q.StartAfter) {
		return invalid("query %s: start_at and start_after are mutually exclusive", q.Name)
	}
	if present(q.EndAt) && present(q.EndBefore) {
		return invalid("query %s: end_at and end_before are mutually exclusive", q.Name)
	}

	if q.Offset < 0 {
		return invalid("query %s: offset must not be negative", q.Name)
	}
	if q.Limit != nil && *q.Limit < 0 {
		return invalid("query %s: limit must not be negative", q.Name)
	}

	if n := q.FindNearest; n != nil {
		if n.VectorField.empty() {
			return invalid("query %s: find_nearest missing vector_field", q.Name)
		}
		if len(n.QueryVector) == 0 {
			return invalid("query %s: find_nearest missing query_vector", q.Name)
		}
		if _, err := query.ParseDistanceMeasure(n.DistanceMeasure); err != nil {
			return invalid("query %s: find_nearest: %v", q.Name, err)
		}
		if n.Limit <= 0 {
			return invalid("query %s: find_nearest limit must be positive", q.Name)
		}
	}
	return nil
}

func validateFilter(f FilterDef, path string) error {
	set := 0
	if f.Field != nil {
		set++
	}
	if f.And != nil {
		set++
	}
	if f.Or != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%s: exactly one of field, and, or is required", path)
	}

	if f.Field == nil {
		if f.Op != "" || present(f.Value) {
			return fmt.Errorf("%s: op and value belong to field filters", path)
		}
		if f.And != nil {
			return validateOperands(f.And, path+".and")
		}
		return validateOperands(f.Or, path+".or")
	}

	if f.Field.empty() {
		return fmt.Errorf("%s: empty field", path)
	}
	if _, err := query.ParseUnaryOperator(f.Op); err == nil {
		if present(f.Value) {
			return fmt.Errorf("%s: %s takes no value", path, f.Op)
		}
		return nil
	}
	if _, err := query.ParseFieldOperator(f.Op); err != nil {
		return fmt.Errorf("%s: %v", path, err)
	}
	if !present(f.Value) {
		return fmt.Errorf("%s: %s requires a value", path, f.Op)
	}
	return nil
}

func validateOperands(operands []FilterDef, path string) error {
	for i, operand := range operands {
		if err := validateFilter(operand, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func normalizeJSONCompatible(value any, path string) (any, error) {
	switch v := value.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalid("non-finite number at %s", path)
		}
		if v >= math.MaxInt64 || v < math.MinInt64 {
			// Keep the exponent so the value is not read back as an integer.
			return json.Number(strconv.FormatFloat(v, 'e', -1, 64)), nil
		}
		return v, nil
	case time.Time:
		// yaml.v3 decodes unquoted timestamps and dates itself.
		return map[string]any{"$timestamp": v.Format(time.RFC3339Nano)}, nil
	case []any:
		return normalizeJSONSlice(v, path)
	case map[string]any:
		return normalizeJSONStringMap(v, path)
	case map[any]any:
		return normalizeJSONAnyMap(v, path)
	default:
		return nil, invalid("non-JSON value at %s (%T)", path, v)
	}
}

// checkIntegerLiterals rejects plain integer literals that yaml.v3 resolved
// to floats because they do not fit int64 or uint64.
func checkIntegerLiterals(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode && n.Style == 0 && n.Tag == "!!float" && isIntegerLiteral(n.Value) {
		return invalid("integer %s out of range at line %d", n.Value, n.Line)
	}
	for _, child := range n.Content {
		if err := checkIntegerLiterals(child); err != nil {
			return err
		}
	}
	return nil
}

func isIntegerLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if (s[i] < '0' || s[i] > '9') && s[i] != '_' {
			return false
		}
	}
	return true
}

func normalizeJSONSlice(values []any, path string) ([]any, error) {
	out := make([]any, 0, len(values))
	for i := range values {
		elem, err := normalizeJSONCompatible(values[i], fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

func normalizeJSONStringMap(values map[string]any, path string) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for k, vv := range values {
		elem, err := normalizeJSONCompatible(vv, path+"."+k)
		if err != nil {
			return nil, err
		}
		out[k] = elem
	}
	return out, nil
}

func normalizeJSONAnyMap(values map[any]any, path string) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for kk, vv := range values {
		key, ok := kk.(string)
		if !ok {
			return nil, invalid("non-string key at %s", path)
		}
		elem, err := normalizeJSONCompatible(vv, path+"."+key)
		if err != nil {
			return nil, err
		}
		out[key] = elem
	}
	return out, nil
}
