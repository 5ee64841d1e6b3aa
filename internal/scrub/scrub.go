// Package scrub sanitizes caller-supplied data before it is serialized
// into a report: sensitive keys are masked and reference cycles are broken
// so encoding always terminates.
package scrub

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Markers substituted for masked values and broken cycles.
const (
	Scrubbed = "[SCRUBBED]"
	Circular = "[Circular Reference]"
)

// builtinFields are always scrubbed from value trees, in addition to any
// caller-configured fields.
var builtinFields = []string{
	"password",
	"secret",
	"token",
	"accessToken",
	"access_token",
	"apiKey",
	"api_key",
	"credential",
}

// headerMarkers are substring-matched against header names. This list is
// fixed: it cannot be disabled or replaced by configuration.
var headerMarkers = []string{
	"authorization",
	"cookie",
	"set-cookie",
	"x-api-key",
	"x-auth-token",
}

// FieldSet returns the built-in sensitive field names unioned with extra.
// Caller additions never replace the built-ins.
func FieldSet(extra []string) []string {
	out := make([]string, 0, len(builtinFields)+len(extra))
	out = append(out, builtinFields...)
	out = append(out, extra...)
	return out
}

// Values returns a sanitized deep copy of v. Keys case-insensitively
// matching fields are replaced with the Scrubbed marker; containers
// already visited on the current path are replaced with the Circular
// marker, which guarantees termination on any finite graph. The input is
// never mutated.
func Values(v any, fields []string) any {
	lower := make(map[string]bool, len(fields))
	for _, f := range fields {
		lower[strings.ToLower(f)] = true
	}
	return walk(v, lower, make(map[uintptr]bool))
}

// Headers masks every header whose name case-insensitively contains one
// of the fixed sensitive markers or one of the extra scrub fields.
func Headers(h map[string]string, extra []string) map[string]string {
	if h == nil {
		return nil
	}
	markers := make([]string, 0, len(headerMarkers)+len(extra))
	markers = append(markers, headerMarkers...)
	for _, f := range extra {
		markers = append(markers, strings.ToLower(f))
	}

	out := make(map[string]string, len(h))
	for name, value := range h {
		if sensitiveHeader(name, markers) {
			out[name] = Scrubbed
		} else {
			out[name] = value
		}
	}
	return out
}

func sensitiveHeader(name string, markers []string) bool {
	name = strings.ToLower(name)
	for _, m := range markers {
		if m != "" && strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// walk copies one value. seen holds the identities (data pointers) of
// every container entered on this call tree; it is local to a single
// Values call and never shared.
func walk(v any, fields map[string]bool, seen map[uintptr]bool) any {
	if v == nil {
		return nil
	}
	// time.Time is a struct but serializes as a scalar.
	if t, ok := v.(time.Time); ok {
		return t
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		id := rv.Pointer()
		if seen[id] {
			return Circular
		}
		seen[id] = true
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			if fields[strings.ToLower(key)] {
				out[key] = Scrubbed
				continue
			}
			out[key] = walk(iter.Value().Interface(), fields, seen)
		}
		return out

	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		// Empty slices share the runtime's zero-size base pointer and
		// cannot form cycles; don't track them.
		if rv.Len() == 0 {
			return []any{}
		}
		id := rv.Pointer()
		if seen[id] {
			return Circular
		}
		seen[id] = true
		return walkList(rv, fields, seen)

	case reflect.Array:
		return walkList(rv, fields, seen)

	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		id := rv.Pointer()
		if seen[id] {
			return Circular
		}
		seen[id] = true
		return walk(rv.Elem().Interface(), fields, seen)

	case reflect.Struct:
		rt := rv.Type()
		out := make(map[string]any, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			name := fieldName(f)
			if name == "-" {
				continue
			}
			if fields[strings.ToLower(name)] {
				out[name] = Scrubbed
				continue
			}
			out[name] = walk(rv.Field(i).Interface(), fields, seen)
		}
		return out

	default:
		// Scalars pass through unchanged.
		return v
	}
}

func walkList(rv reflect.Value, fields map[string]bool, seen map[uintptr]bool) any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = walk(rv.Index(i).Interface(), fields, seen)
	}
	return out
}

// fieldName honors json struct tags so the scrubbed copy carries the same
// key names the encoder would have produced.
func fieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}
