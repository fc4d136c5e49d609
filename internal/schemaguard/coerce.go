// Package schemaguard turns arbitrary decoded JSON into a fully-populated
// value of a declared shape. Coercion is total: a maximally malformed input
// still yields a complete, valid value, with every defaulted field reported
// so callers can surface lowered confidence.
package schemaguard

import (
	"sort"
	"strconv"
	"strings"
)

// Kind identifies a field's target type.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindEnum
	KindArray
	KindObject
)

// Field declares the target type, default and constraints of one field.
type Field struct {
	Kind    Kind
	Default any      // scalar default used when input is missing or invalid
	Min     float64  // number clamp lower bound (used when Clamp is true)
	Max     float64  // number clamp upper bound
	Clamp   bool
	Enum    []string // valid enum values, matched case-insensitively
	Elem    *Field   // array element shape
	Fields  Shape    // object fields
}

// Shape declares the fields of a target object.
type Shape map[string]Field

// Result is a coerced value plus the dotted paths of every field that fell
// back to its default.
type Result struct {
	Value          map[string]any
	FallbackFields []string
}

// Coerce maps raw onto shape. It never fails; any JSON-decodable input,
// including nil, produces a complete value satisfying the shape's declared
// ranges and enums.
func Coerce(raw any, shape Shape) Result {
	c := &coercer{}
	obj, _ := raw.(map[string]any)
	value := c.object(obj, shape, "")
	sort.Strings(c.fallbacks)
	return Result{Value: value, FallbackFields: c.fallbacks}
}

type coercer struct {
	fallbacks []string
}

func (c *coercer) flag(path string) {
	c.fallbacks = append(c.fallbacks, path)
}

func (c *coercer) object(raw map[string]any, shape Shape, prefix string) map[string]any {
	out := make(map[string]any, len(shape))
	for name, field := range shape {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		var v any
		if raw != nil {
			v = raw[name]
		}
		out[name] = c.field(v, field, path)
	}
	return out
}

func (c *coercer) field(raw any, f Field, path string) any {
	switch f.Kind {
	case KindString:
		return c.str(raw, f, path)
	case KindNumber:
		return c.number(raw, f, path)
	case KindBool:
		return c.boolean(raw, f, path)
	case KindEnum:
		return c.enum(raw, f, path)
	case KindArray:
		return c.array(raw, f, path)
	case KindObject:
		obj, ok := raw.(map[string]any)
		if !ok && raw != nil {
			c.flag(path)
		} else if raw == nil {
			c.flag(path)
		}
		return c.object(obj, f.Fields, path)
	default:
		c.flag(path)
		return f.Default
	}
}

func (c *coercer) str(raw any, f Field, path string) string {
	def, _ := f.Default.(string)
	s, ok := raw.(string)
	if !ok {
		c.flag(path)
		return def
	}
	return strings.TrimSpace(s)
}

func (c *coercer) number(raw any, f Field, path string) float64 {
	def, ok := toFloat(f.Default)
	if !ok {
		def = 0
	}
	v, ok := toFloat(raw)
	if !ok {
		c.flag(path)
		v = def
	}
	if f.Clamp {
		if v < f.Min {
			v = f.Min
		}
		if v > f.Max {
			v = f.Max
		}
	}
	return v
}

func (c *coercer) boolean(raw any, f Field, path string) bool {
	def, _ := f.Default.(bool)
	b, ok := raw.(bool)
	if !ok {
		c.flag(path)
		return def
	}
	return b
}

func (c *coercer) enum(raw any, f Field, path string) string {
	def, _ := f.Default.(string)
	s, ok := raw.(string)
	if ok {
		s = strings.ToLower(strings.TrimSpace(s))
		for _, valid := range f.Enum {
			if s == valid {
				return valid
			}
		}
	}
	c.flag(path)
	return def
}

func (c *coercer) array(raw any, f Field, path string) []any {
	items, ok := raw.([]any)
	if !ok {
		if raw != nil {
			c.flag(path)
		}
		return []any{}
	}
	if f.Elem == nil {
		return items
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		out = append(out, c.field(item, *f.Elem, path+"["+strconv.Itoa(i)+"]"))
	}
	return out
}

// toFloat accepts the numeric encodings a JSON decoder or an imprecise
// completion can produce: float64, integer types, and numeric strings.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
