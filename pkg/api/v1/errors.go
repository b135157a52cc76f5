package v1

import (
	"errors"
	"net/http"
	"strings"
)

// Error taxonomy shared by every layer. Packages wrap causes with one of
// these so the HTTP boundary can pick a status without knowing who failed.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrMissingAPIKey = errors.New("API key is required")
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrRateLimited   = errors.New("too many requests")
	ErrUpstream      = errors.New("upstream service failed")
	ErrPersistence   = errors.New("persistence failed")
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level details for a rejected request.
type ValidationError struct {
	Details []FieldError
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Details: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Details = append(e.Details, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Details) > 0
}

// OrNil returns e as an error when it holds details, nil otherwise.
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Field+": "+d.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalidInput) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// StatusCode maps an error to the HTTP status the API reports for it.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingAPIKey):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidAPIKey):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
