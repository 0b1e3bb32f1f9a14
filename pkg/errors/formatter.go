package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var tagMessages = map[string]string{
	"required":       "This field is required",
	"email":          "Invalid email format",
	"waitlist_email": "Invalid email address",
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("Must not exceed %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	}
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return msg
	}
	return "Invalid value"
}

// jsonFieldName resolves the wire name of a struct field from its json tag.
func jsonFieldName(structType reflect.Type, fieldName string) string {
	if structType == nil {
		return fieldName
	}
	field, found := structType.FieldByName(fieldName)
	if !found {
		return fieldName
	}

	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fieldName
	}
	return name
}

// FormatValidationErrors turns binding failures into per-field messages for logs. model is the
// bound struct (or a pointer to it) and may be nil.
func FormatValidationErrors(err error, model any) []ValidationErrorResponse {
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []ValidationErrorResponse{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Invalid type for field %s. Expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value),
		}}
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	var structType reflect.Type
	if model != nil {
		structType = reflect.TypeOf(model)
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
	}

	out := make([]ValidationErrorResponse, 0, len(validationErrors))
	for _, fe := range validationErrors {
		out = append(out, ValidationErrorResponse{
			Field:   jsonFieldName(structType, fe.Field()),
			Message: messageFor(fe),
		})
	}
	return out
}
