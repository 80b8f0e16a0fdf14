package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction marks a failed text extraction: unreadable source,
	// unsupported content, or a format-specific parse failure.
	ErrExtraction = errors.New("extraction failed")
	// ErrConversion marks a failed external document conversion.
	ErrConversion = errors.New("conversion failed")
	// ErrCacheRead marks a missing or unreadable cache artifact. Callers
	// are expected to regenerate rather than fail hard.
	ErrCacheRead = errors.New("cache read failed")
	// ErrPersistence marks a failed row write in the relational store.
	ErrPersistence = errors.New("persistence failed")

	ErrNotFound     = errors.New("not found")
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
