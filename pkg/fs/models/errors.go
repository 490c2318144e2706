package models

import "errors"

// Common errors for filesystem and storage operations. Handlers map these
// to HTTP problem responses; stores and services return them unwrapped or
// wrapped with %w so errors.Is keeps working across layers.
var (
	// Item errors
	ErrItemNotFound  = errors.New("filesystem item not found")
	ErrAlreadyExists = errors.New("an item with that name already exists")
	ErrInvalidType   = errors.New("operation not valid for this item type")
	ErrNotPermitted  = errors.New("operation not permitted")
	ErrNoWork        = errors.New("nothing to update")

	// File content errors
	ErrMimeMismatch = errors.New("content type does not match existing file")
	ErrMaxSize      = errors.New("upload exceeds the maximum representable size")
	ErrInvalidHash  = errors.New("uploaded content does not match the supplied hash")
	ErrFileMissing  = errors.New("file content is missing from disk")

	// Medium errors
	ErrMediumNotFound  = errors.New("storage medium not found")
	ErrDuplicateMedium = errors.New("storage medium already exists")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError reports a malformed field on a request.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "validation failed for field " + e.Field
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field string) error {
	return &ValidationError{Field: field}
}
