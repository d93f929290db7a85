package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report json tag names in validation errors instead of Go field names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// FieldError describes a single failed validation rule.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

// ValidateStruct validates a struct using go-playground/validator and
// returns the failures as field errors.
func ValidateStruct(s interface{}) ([]FieldError, error) {
	if s == nil {
		return nil, nil
	}

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("validator: expected a struct, got %T", s)
	}

	err := validate.Struct(s)
	if err == nil {
		return nil, nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	fields := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		fields = append(fields, FieldError{
			Field:   e.Field(),
			Rule:    e.Tag(),
			Message: describeFailure(e),
		})
	}

	return fields, nil
}

func describeFailure(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", e.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", e.Field(), e.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", e.Field(), e.Tag())
	}
}
