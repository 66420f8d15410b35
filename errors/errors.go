package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates a required service is unavailable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrStorage indicates a session store operation failed
	ErrStorage = errors.New("session storage failed")

	// ErrLLMCommunication indicates the completion API call failed
	ErrLLMCommunication = errors.New("llm communication failed")
)

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsInvalidInput checks if error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsLLMCommunication checks if error is a failure to reach the completion API
func IsLLMCommunication(err error) bool {
	return errors.Is(err, ErrLLMCommunication)
}
