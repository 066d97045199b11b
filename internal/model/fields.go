package model

import (
	"reflect"
	"strings"
	"unicode"
)

// Field is one client-writable JSON field of an entity.
type Field struct {
	Name string
	Type reflect.Type
}

// IsList reports whether the field is a list of strings (tag-like input).
func (f Field) IsList() bool {
	return f.Type.Kind() == reflect.Slice && f.Type.Elem().Kind() == reflect.String
}

// Fields returns the client-writable fields of T keyed by JSON name.
// Embedded metadata and the counter field are excluded.
func Fields[T Entity]() map[string]Field {
	var zero T
	schema := zero.Schema()
	t := reflect.TypeOf(zero)
	out := make(map[string]Field, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous || !sf.IsExported() {
			continue
		}
		name := jsonName(sf)
		if name == "" || name == schema.CounterField {
			continue
		}
		out[name] = Field{Name: name, Type: sf.Type}
	}
	return out
}

// IsServerField reports whether key is owned by the server for schema s.
func IsServerField(s Schema, key string) bool {
	switch key {
	case FieldID, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return s.CounterField != "" && key == s.CounterField
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name
	}
	return name
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
