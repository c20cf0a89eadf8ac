package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound marks a referenced upload file missing at processing time.
	ErrSourceNotFound = errors.New("source file not found")
	// ErrExtractionFailed marks a model call that errored, returned non-JSON,
	// or produced output that failed the shape validation.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrRecordNotFound marks a document identifier absent from the store.
	ErrRecordNotFound = errors.New("document record not found")
	// ErrPersistenceFailed marks a store write that itself errored.
	ErrPersistenceFailed = errors.New("persistence failed")
	// ErrMissingCredential marks an absent model API credential at startup.
	ErrMissingCredential = errors.New("missing credential")

	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
