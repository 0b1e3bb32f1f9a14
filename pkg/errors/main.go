package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueViolationCode is the SQLSTATE postgres reports for a unique index conflict.
const uniqueViolationCode = "23505"

const (
	ErrorTypeInvalidRequest      = "INVALID_REQUEST"
	ErrorTypeUnauthorized        = "UNAUTHORIZED"
	ErrorTypeNotFound            = "NOT_FOUND"
	ErrorTypeDatabaseError       = "DATABASE_ERROR"
	ErrorTypeNotification        = "NOTIFICATION_ERROR"
	ErrorTypeProvisioning        = "PROVISIONING_ERROR"
	ErrorTypeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrorTypeUnknown             = "UNKNOWN_ERROR"
)

// AppError is the error every layer returns. Message is safe to show a caller; Err is for logs.
type AppError struct {
	Type    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(errType, message string, err error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// NewInvalidRequestError is a rejected submission. The message is shown verbatim.
func NewInvalidRequestError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInvalidRequest, message, err)
}

// NewDatabaseError is a failed write. The driver error stays in Err and out of responses.
func NewDatabaseError(message string, err error) *AppError {
	return NewAppError(ErrorTypeDatabaseError, message, err)
}

// NewNotificationError marks a failed outbound email. These never reach an HTTP caller.
func NewNotificationError(message string, err error) *AppError {
	return NewAppError(ErrorTypeNotification, message, err)
}

// NewProvisioningError keeps the raw driver message: provisioning is only exposed to operators.
func NewProvisioningError(err error) *AppError {
	message := "schema provisioning failed"
	if err != nil {
		message = err.Error()
	}
	return NewAppError(ErrorTypeProvisioning, message, err)
}

func GetErrorType(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	return ErrorTypeUnknown
}

// duplicateMarkers are the unique-violation texts of drivers that don't expose a code
// gorm can translate.
var duplicateMarkers = []string{
	"duplicate key",
	"unique constraint",
	"unique violation",
}

// IsDuplicateKeyError reports whether err is a unique-index conflict from any supported driver.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range duplicateMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
