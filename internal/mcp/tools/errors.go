package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/usestring/places-text/internal/output"
	"github.com/usestring/places-text/pkg/client"
)

// Error codes for MCP tool responses.
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodePlacesError      = "PLACES_ERROR"
	ErrCodeBadResponse      = "BAD_RESPONSE"
	ErrCodeWriteFailed      = "WRITE_FAILED"
	ErrCodeTimeout          = "TIMEOUT"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapSearchError converts a search or write failure to a coded error.
func WrapSearchError(err error) error {
	if err == nil {
		return nil
	}

	coded := &CodedError{Code: ErrCodePlacesError, Message: "places search failed", Cause: err}

	var reqErr *client.RequestError
	var parseErr *client.ResponseParseError
	var ioErr *output.IOWriteError
	var netErr net.Error
	switch {
	case errors.As(err, &reqErr) && (reqErr.StatusCode == http.StatusForbidden || reqErr.StatusCode == http.StatusUnauthorized):
		coded.Code = ErrCodePermissionDenied
		coded.Message = "API key rejected or Places API not enabled"
	case errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusTooManyRequests:
		coded.Code = ErrCodeRateLimited
		coded.Message = "quota exceeded, retry later"
	case errors.As(err, &parseErr):
		coded.Code = ErrCodeBadResponse
		coded.Message = "unexpected response from places API"
	case errors.As(err, &ioErr):
		coded.Code = ErrCodeWriteFailed
		coded.Message = "could not save results"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		coded.Code = ErrCodeTimeout
		coded.Message = "request timed out"
	}

	slog.Warn("places tool error",
		slog.String("code", coded.Code),
		slog.String("error", err.Error()),
	)

	return coded
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
