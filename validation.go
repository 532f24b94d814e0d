package hirewire

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// FormatValidationErrorToMap flattens field validation failures into a
// field to message map suitable for form rendering and JSON responses.
// Errors that carry no field information produce an empty map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for field, fieldErr := range fieldErrs {
			if fieldErr != nil {
				out[field] = fieldErr.Error()
			}
		}
	}

	return out
}
