package domain

import "errors"

// Domain errors
var (
	ErrQuotaExhausted     = errors.New("quota exhausted")
	ErrInvalidPageRange   = errors.New("invalid page range")
	ErrParseFailure       = errors.New("document could not be parsed")
	ErrPageProcessing     = errors.New("page processing failed")
	ErrRenderFailure      = errors.New("report rendering failed")
	ErrStorageFailure     = errors.New("storage operation failed")
	ErrObjectNotFound     = errors.New("stored object not found")
	ErrRecordPersistence  = errors.New("conversion record could not be persisted")
	ErrConversionNotFound = errors.New("conversion not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrEmptyResponse      = errors.New("model returned no text")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
