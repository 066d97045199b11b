package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"libportal/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateEntity runs the struct tags of an entity and converts failures to
// field-level errors named by their JSON path.
func validateEntity(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		path := e.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}
		out = append(out, FieldError{Field: path, Message: formatValidationError(path, e)})
	}
	return newValidationError(out...)
}

func formatValidationError(field string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + e.Param() + " characters"
	case "min":
		return field + " must be at least " + e.Param()
	case "gte":
		return field + " must be greater than or equal to " + e.Param()
	case "lte":
		return field + " must be less than or equal to " + e.Param()
	case "email":
		return field + " must be a valid email address"
	case "url":
		return field + " must be an absolute URL"
	case "oneof":
		return field + " must be one of: " + e.Param()
	case "datetime":
		return field + " must be an ISO-8601 timestamp"
	default:
		return field + " validation failed: " + e.Tag()
	}
}

// stripNulls drops null values, recursing into nested objects.
func stripNulls(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch tv := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = stripNulls(tv)
		default:
			out[k] = v
		}
	}
	return out
}

// decodeFields builds an entity from a field map. Unknown keys and values of
// the wrong JSON type are reported as field errors.
func decodeFields[T model.Entity](fields map[string]any, known map[string]model.Field) (T, error) {
	var v T

	var unknown []FieldError
	for k := range fields {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, FieldError{Field: k, Message: k + " is not a recognised field"})
		}
	}
	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool { return unknown[i].Field < unknown[j].Field })
		return v, newValidationError(unknown...)
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return v, newValidationError(FieldError{Field: "", Message: "payload is not JSON-encodable"})
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return v, newValidationError(FieldError{
				Field:   te.Field,
				Message: fmt.Sprintf("%s must be of type %s", te.Field, jsonKind(te.Type)),
			})
		}
		return v, newValidationError(FieldError{Field: "", Message: err.Error()})
	}
	return v, nil
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}
