package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds action payloads
const maxBodyBytes = 1 << 16

// ErrEmptyBody is returned when an action arrives without a payload
var ErrEmptyBody = errors.New("request body is required")

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateRequest validates a decoded payload against its validate tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// DecodeAndValidate decodes a JSON action payload into v and validates it.
// Unknown fields are rejected.
func DecodeAndValidate(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	return ValidateRequest(v)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	formatted := make([]ValidationError, 0, len(validationErrors))
	for _, e := range validationErrors {
		formatted = append(formatted, ValidationError{
			Field:   e.Field(),
			Message: fieldMessage(e),
		})
	}
	return formatted
}

var tagMessages = map[string]string{
	"required": "This field is required",
	"max":      "Value is too long, at most %s",
	"min":      "Value is too short, at least %s",
	"gte":      "Value must be greater than or equal to %s",
	"lte":      "Value must be less than or equal to %s",
	"gt":       "Value must be greater than %s",
	"lt":       "Value must be less than %s",
}

func fieldMessage(e validator.FieldError) string {
	format, ok := tagMessages[e.Tag()]
	if !ok {
		return "Invalid value"
	}
	if strings.Contains(format, "%s") {
		return fmt.Sprintf(format, e.Param())
	}
	return format
}
