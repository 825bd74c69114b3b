package storage

import "errors"

// Sentinel errors returned by repository implementations. Callers match them
// with errors.Is to translate persistence failures into HTTP statuses.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
