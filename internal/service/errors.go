package service

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbedding is returned when the embedding backend fails. Never retried
	// within the gateway; the request fails as a whole.
	ErrEmbedding = errors.New("embedding failed")
	// ErrStore is returned when the underlying vector database call fails.
	ErrStore = errors.New("vector store failure")
)

// ValidationError represents a caller input error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
