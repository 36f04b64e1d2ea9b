package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/visionsmith/argus-api/internal/classifier"
	"github.com/visionsmith/argus-api/internal/platform/imagefetch"
	"github.com/visionsmith/argus-api/internal/scheduler"
	"github.com/visionsmith/argus-api/internal/service"
	"github.com/visionsmith/argus-api/internal/service/auth"
	"github.com/visionsmith/argus-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidAPIKey):
		return http.StatusUnauthorized

	// Scheduler terminal states
	case errors.Is(err, scheduler.ErrTaskTimeout),
		errors.Is(err, scheduler.ErrDrainTimeout):
		return http.StatusGatewayTimeout

	case errors.Is(err, scheduler.ErrQueueCleared):
		return http.StatusConflict

	// The caller abandoned a synchronous request before the task settled
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout

	// Not found errors
	case errors.Is(err, service.ErrClassificationNotFound),
		errors.Is(err, store.ErrClassificationNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Bad input: rejected URLs, oversized or non-image payloads
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, imagefetch.ErrUnsupportedType),
		errors.Is(err, imagefetch.ErrImageTooLarge):
		return http.StatusBadRequest

	// The remote image could not be retrieved
	case errors.Is(err, imagefetch.ErrFetchFailed):
		return http.StatusUnprocessableEntity

	// Upstream model failures
	case errors.Is(err, classifier.ErrContentBlocked):
		return http.StatusUnprocessableEntity

	case errors.Is(err, classifier.ErrTransientFailure),
		errors.Is(err, classifier.ErrClassificationFailed),
		errors.Is(err, classifier.ErrInvalidResponse):
		return http.StatusBadGateway

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
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidAPIKey):
		return "Invalid API key"

	case errors.Is(err, scheduler.ErrTaskTimeout):
		return "Classification timed out"

	case errors.Is(err, scheduler.ErrQueueCleared):
		return "Classification was cancelled by an operator"

	case errors.Is(err, scheduler.ErrDrainTimeout):
		return "Drain timed out"

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Request cancelled before classification finished"

	case errors.Is(err, service.ErrClassificationNotFound),
		errors.Is(err, store.ErrClassificationNotFound):
		return "Classification not found"

	case errors.Is(err, imagefetch.ErrUnsupportedType):
		return "URL does not point to a supported image type"

	case errors.Is(err, imagefetch.ErrImageTooLarge):
		return "Image exceeds the maximum allowed size"

	case errors.Is(err, imagefetch.ErrFetchFailed):
		return "Image could not be fetched"

	case errors.Is(err, classifier.ErrContentBlocked):
		return "Image was rejected by the model's safety filters"

	case errors.Is(err, classifier.ErrTransientFailure),
		errors.Is(err, classifier.ErrClassificationFailed),
		errors.Is(err, classifier.ErrInvalidResponse):
		return "Classification model is unavailable"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid classification request"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'ClassifyRequest.ImageURL' Error:Field
		// validation for 'ImageURL' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "url":
		return "invalid URL format"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
