package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

// Error response messages. The *Failed messages are per route.
const (
	msgQueryFailed       = "An error occurred while processing your query"
	msgAddDocumentFailed = "An error occurred while adding the document"
	msgDeleteFailed      = "An error occurred while deleting the document"
	msgProcessFailed     = "Failed to process document"
	msgProcessManyFailed = "Failed to process documents"
	msgSearchFailed      = "Failed to search documents"
	msgDirectQueryFailed = "Failed to generate response"
	msgInvalidInput      = "Invalid input"
	msgRateLimited       = "Too many requests, please try again later"
	msgInternalError     = "Internal server error"
	fieldBody            = "body"
)

// routeError attaches the route's failure message to a handler error.
type routeError struct {
	message string
	field   string
	err     error
}

func (e *routeError) Error() string { return e.message + ": " + e.err.Error() }
func (e *routeError) Unwrap() error { return e.err }

// failed wraps err with the message reported if it turns out to be a 500.
func failed(message string, err error) error {
	return &routeError{message: message, err: err}
}

// invalidField wraps an input error that is reported against field.
func invalidField(field string, err error) error {
	return &routeError{message: msgInvalidInput, field: field, err: err}
}

// handleError writes the JSON error body for err.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := s.errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Warn(c.Request().Context(), "writing error response failed", zap.Error(err))
	}
}

func (s *Server) errorResponse(err error) (int, v1.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil && errors.Is(he.Internal, v1.ErrInvalidInput) {
			return s.errorResponse(he.Internal)
		}
		msg, ok := he.Message.(string)
		if !ok {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, v1.ErrorResponse{Error: msg}
	}

	switch status := v1.StatusCode(err); status {
	case http.StatusBadRequest:
		var ve *v1.ValidationError
		if errors.As(err, &ve) {
			return status, v1.ErrorResponse{Error: msgInvalidInput, Details: ve.Details}
		}
		field := fieldBody
		var re *routeError
		if errors.As(err, &re) && re.field != "" {
			field = re.field
			err = re.err
		}
		return status, v1.ErrorResponse{
			Error:   msgInvalidInput,
			Details: []v1.FieldError{{Field: field, Message: err.Error()}},
		}
	case http.StatusUnauthorized:
		return status, v1.ErrorResponse{Error: "API key is required"}
	case http.StatusForbidden:
		return status, v1.ErrorResponse{Error: "Invalid API key"}
	case http.StatusTooManyRequests:
		return status, v1.ErrorResponse{Error: msgRateLimited}
	default:
		msg := msgInternalError
		cause := err
		var re *routeError
		if errors.As(err, &re) {
			msg = re.message
			cause = re.err
		}
		return status, v1.ErrorResponse{Error: msg, Details: cause.Error()}
	}
}
