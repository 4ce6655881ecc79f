package upload

import (
	"fmt"
	"strings"
)

// AllowedExtensions lists the upload formats the parser accepts, in display order
var AllowedExtensions = []string{".csv", ".xlsx", ".xls"}

// AllowedExtensionsText returns the allowed extensions as ".csv, .xlsx, .xls"
func AllowedExtensionsText() string {
	return strings.Join(AllowedExtensions, ", ")
}

// UnsupportedFormatError is returned for files whose extension is not allowed
type UnsupportedFormatError struct {
	Filename string
}

// Error implements the error interface
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s (allowed: %s)", e.Filename, AllowedExtensionsText())
}

// ParseError wraps a failure to decode the file content
type ParseError struct {
	Filename string
	Err      error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Filename, e.Err)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}
