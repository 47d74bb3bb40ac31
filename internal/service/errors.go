package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a document id that does not resolve in the blob store.
	ErrNotFound = errors.New("document not found")
	// ErrTokenInvalid reports a public token that is malformed or was never issued.
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrValidation reports missing or empty input.
	ErrValidation = errors.New("validation failed")
	// ErrStorageUnavailable wraps failures of the blob or metadata store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
