package naming

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Convention represents how Go struct field names map to document field names.
type Convention int

const (
	// AsIs keeps the Go field name unchanged: "FirstName" stays "FirstName".
	AsIs Convention = 0
	// CamelCase convention: "firstName", "createdAt"
	CamelCase Convention = 1
	// SnakeCase convention: "first_name", "created_at"
	SnakeCase Convention = 2
)

// TagName is the struct tag consulted before falling back to `json`.
const TagName = "firestore"

// FieldOptions are the modifiers parsed from a struct tag.
type FieldOptions struct {
	OmitEmpty bool
}

// ResolveFieldName determines the document field name for a struct field.
// It returns the name, the parsed options, and whether the field should be skipped.
func ResolveFieldName(field reflect.StructField, convention Convention) (string, FieldOptions, bool) {
	tag, hasTag := field.Tag.Lookup(TagName)
	if !hasTag {
		tag, hasTag = field.Tag.Lookup("json")
	}
	if tag == "-" {
		return "", FieldOptions{}, true
	}

	var opts FieldOptions
	name := ""
	if hasTag {
		parts := strings.Split(tag, ",")
		name = strings.TrimSpace(parts[0])
		for _, part := range parts[1:] {
			if strings.TrimSpace(part) == "omitempty" {
				opts.OmitEmpty = true
			}
		}
	}

	if name != "" {
		return name, opts, false
	}
	return ConvertFieldName(field.Name, convention), opts, false
}

// ToCamelCase converts a Go struct field name to camelCase.
// Leading acronyms are lowered as a unit: "URLValue" → "urlValue", "ID" → "id".
func ToCamelCase(name string) string {
	if name == "" {
		return ""
	}

	runes := []rune(name)
	if len(runes) == 1 {
		return strings.ToLower(name)
	}

	boundary := 1
	for boundary < len(runes) {
		if !unicode.IsUpper(runes[boundary]) {
			break
		}

		if boundary+1 < len(runes) && !unicode.IsUpper(runes[boundary+1]) {
			break
		}

		boundary++
	}

	prefix := strings.ToLower(string(runes[:boundary]))
	return prefix + string(runes[boundary:])
}

// ToSnakeCase converts a Go struct field name to snake_case.
// It uses smart acronym handling: "URLValue" → "url_value", "ID" → "id", "UserID" → "user_id".
func ToSnakeCase(name string) string {
	if name == "" {
		return ""
	}

	runes := []rune(name)
	if len(runes) == 1 {
		return strings.ToLower(name)
	}

	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	for i, ch := range runes {
		if unicode.IsUpper(ch) {
			if i > 0 {
				prev := runes[i-1]
				nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if !unicode.IsDigit(prev) && (unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextIsLower)) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(ch))
			continue
		}
		b.WriteRune(unicode.ToLower(ch))
	}

	return b.String()
}

// ConvertFieldName converts a field name to the given naming convention.
func ConvertFieldName(name string, convention Convention) string {
	switch convention {
	case SnakeCase:
		return ToSnakeCase(name)
	case CamelCase:
		return ToCamelCase(name)
	case AsIs:
		fallthrough
	default:
		return name
	}
}

// ParseConvention resolves a convention from its configuration name.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "as_is", "asis", "none":
		return AsIs, nil
	case "camel", "camelcase", "camel_case":
		return CamelCase, nil
	case "snake", "snakecase", "snake_case":
		return SnakeCase, nil
	default:
		return AsIs, fmt.Errorf("unknown naming convention %q", s)
	}
}

// String returns the configuration name of the convention.
func (c Convention) String() string {
	switch c {
	case CamelCase:
		return "camel_case"
	case SnakeCase:
		return "snake_case"
	default:
		return "as_is"
	}
}
