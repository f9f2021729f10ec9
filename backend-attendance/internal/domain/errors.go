package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the services wraps exactly one of these.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrAlreadyMarked     = errors.New("attendance already marked for today")
	ErrOutOfWindow       = errors.New("not within event timeline")
	ErrInvalidCode       = errors.New("invalid event code")
	ErrNotRegistered     = errors.New("not registered in this event")
	ErrUnauthorized      = errors.New("authentication required")
)

// Specific errors
var (
	ErrEventNotFound       = fmt.Errorf("event %w", ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)
	ErrAttendanceNotFound  = fmt.Errorf("attendance %w", ErrNotFound)

	ErrEventIDRequired       = NewValidationError("event id is required")
	ErrParticipantIDRequired = NewValidationError("participant id is required")
	ErrCodeRequired          = NewValidationError("event code is required")
	ErrRegistrationClosed    = NewValidationError("registration is closed for this event")

	ErrParticipantExists = fmt.Errorf("participant %w", ErrAlreadyRegistered)

	// ErrCodeCollision is returned when no unique event code could be generated
	ErrCodeCollision = errors.New("could not generate a unique event code")
)

// Stable error codes exposed to callers
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyRegistered = "ALREADY_REGISTERED"
	CodeAlreadyMarked     = "ALREADY_MARKED"
	CodeOutOfWindow       = "OUT_OF_WINDOW"
	CodeInvalidCode       = "INVALID_CODE"
	CodeNotRegistered     = "NOT_REGISTERED"
	CodeAuth              = "AUTH_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

// NewValidationError builds an error in the validation category
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// CodeOf maps an error to its stable code
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyRegistered):
		return CodeAlreadyRegistered
	case errors.Is(err, ErrAlreadyMarked):
		return CodeAlreadyMarked
	case errors.Is(err, ErrOutOfWindow):
		return CodeOutOfWindow
	case errors.Is(err, ErrInvalidCode):
		return CodeInvalidCode
	case errors.Is(err, ErrNotRegistered):
		return CodeNotRegistered
	case errors.Is(err, ErrUnauthorized):
		return CodeAuth
	default:
		return CodeInternal
	}
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflictError reports errors caused by state that already exists
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyRegistered) || errors.Is(err, ErrAlreadyMarked)
}
