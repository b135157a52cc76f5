// Package document defines the metadata attached to stored chunks.
package document

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// maxDepth bounds nesting of metadata objects and arrays.
const maxDepth = 16

// Metadata maps keys to JSON-compatible values: string, number, bool, nil,
// and nested map[string]any or []any of the same.
type Metadata map[string]any

// Validate reports the first value outside the JSON value set, naming its
// path (for example "tags[2]" or "source.page").
func (m Metadata) Validate() error {
	for _, k := range m.Keys() {
		if k == "" {
			return fmt.Errorf("metadata key must not be empty")
		}
		if err := validateValue(k, m[k], 1); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(path string, v any, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("metadata %s: nested deeper than %d levels", path, maxDepth)
	}
	switch val := v.(type) {
	case nil, string, bool, json.Number:
		return nil
	case float64:
		return checkFloat(path, val)
	case float32:
		return checkFloat(path, float64(val))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case map[string]any:
		for k, nested := range val {
			if err := validateValue(path+"."+k, nested, depth+1); err != nil {
				return err
			}
		}
		return nil
	case Metadata:
		return validateValue(path, map[string]any(val), depth)
	case []any:
		for i, nested := range val {
			if err := validateValue(fmt.Sprintf("%s[%d]", path, i), nested, depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("metadata %s: unsupported value type %s", path, reflect.TypeOf(v))
	}
}

func checkFloat(path string, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("metadata %s: number must be finite", path)
	}
	return nil
}

// Clone returns a shallow copy. A nil Metadata clones to an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// With returns a copy of m with key set to value.
func (m Metadata) With(key string, value any) Metadata {
	out := m.Clone()
	out[key] = value
	return out
}

// Merge returns a copy of m overlaid with other.
func (m Metadata) Merge(other Metadata) Metadata {
	out := m.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns m as a plain map, never nil.
func (m Metadata) Map() map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return map[string]any(m)
}
