package errors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidData       = errors.New("invalid data type")
	ErrEmptyUpdates      = errors.New("no updates to aggregate")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
