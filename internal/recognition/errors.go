package recognition

import "errors"

// Common errors returned by recognition backends
var (
	// ErrRecognitionFailed is returned when recognition fails for any general reason
	ErrRecognitionFailed = errors.New("failed to recognize meal from file")

	// ErrInvalidResponse is returned when the backend response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from recognition backend")

	// ErrContentBlocked is returned when the backend blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by recognition backend safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during recognition")

	// ErrInvalidConfig is returned when the recognizer configuration is invalid
	ErrInvalidConfig = errors.New("invalid recognizer configuration")
)
