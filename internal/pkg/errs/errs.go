/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a business code, a user-friendly message, and, for errors originating from the
HTTP API, the status code of the response that produced them.
*/
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"mimico/internal/pkg/logx"
)

// CustomError is the error structure used throughout the client.
// It wraps the Go error interface, adding a business code and, where
// applicable, the HTTP status of the failed API call.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code of the API response this error was
	// derived from; zero for purely client-side errors.
	Status int
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("Error Code %d: %s", e.Code, e.Message)
}

// NewError constructs a new *CustomError from a predefined error code.
// Optional details are applied printf-style to messages containing placeholders.
// Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
			)
		}
	}

	return &customErr
}

// FromServer constructs a *CustomError from an error body returned by the
// HTTP API or pushed on the personal error queue. The server's own code and
// message are preserved so the UI can render them verbatim.
func FromServer(code int, message string, status int) *CustomError {
	if message == "" {
		if status != 0 {
			message = http.StatusText(status)
		} else {
			message = errorMap[ErrUnknown].Message
		}
	}

	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}
