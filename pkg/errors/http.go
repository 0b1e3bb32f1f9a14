package errors

import (
	"errors"
	"net/http"
)

const unexpectedErrorMessage = "An unexpected error occurred"

var statusByType = map[string]int{
	ErrorTypeInvalidRequest: http.StatusBadRequest,
	ErrorTypeUnauthorized:   http.StatusUnauthorized,
	ErrorTypeNotFound:       http.StatusNotFound,
}

// HTTPStatusCode maps an error to a response status. Anything not listed is a 500; callers
// that need another mapping (the join endpoint answers persistence failures with 400) apply
// it themselves.
func HTTPStatusCode(err error) int {
	if status, ok := statusByType[GetErrorType(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GetHumanReadableMessage returns the AppError message, never the text of a wrapped error.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return unexpectedErrorMessage
}
