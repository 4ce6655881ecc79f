package api

import "fmt"

// FieldError reports a multipart form field that is absent or blank.
// Its message is returned to the caller as is.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Missing required field: %s", e.Field)
}
