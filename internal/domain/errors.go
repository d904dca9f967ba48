package domain

import (
	"errors"
	"fmt"
)

// ErrQuizNotFound indicates the quiz id does not reference a stored quiz.
var ErrQuizNotFound = errors.New("quiz not found")

// ValidationError reports a missing or empty required field. Message is
// shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with the given user message.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// StorageError wraps a failed blob or row write. File is the original name
// of the image being uploaded, if any.
type StorageError struct {
	File string
	Err  error
}

func (e *StorageError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("Erreur lors de l'upload de l'image %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("Erreur de stockage: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
