package api

import (
	"errors"
	"net/http"

	"github.com/foodiary/foodiary-api/internal/service"
	"github.com/foodiary/foodiary-api/internal/service/auth"
	"github.com/foodiary/foodiary-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrMealNotFound),
		errors.Is(err, store.ErrMealNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrFileKeyExists):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, service.ErrUnsupportedFileType),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, service.ErrMealNotFound),
		errors.Is(err, store.ErrMealNotFound):
		return "Meal not found"

	case errors.Is(err, store.ErrFileKeyExists):
		return "File key already in use"

	case errors.Is(err, service.ErrUnsupportedFileType):
		return "Unsupported file type"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}
