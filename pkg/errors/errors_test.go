package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestHTTPStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusInternalServerError},
		{"invalid request", NewInvalidRequestError("Invalid email address", nil), http.StatusBadRequest},
		{"not found", NewAppError(ErrorTypeNotFound, "missing", nil), http.StatusNotFound},
		{"unauthorized", NewAppError(ErrorTypeUnauthorized, "no", nil), http.StatusUnauthorized},
		{"database", NewDatabaseError("down", errors.New("conn reset")), http.StatusInternalServerError},
		{"provisioning", NewProvisioningError(errors.New("permission denied")), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("join: %w", NewInvalidRequestError("bad", nil)), http.StatusBadRequest},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusCode(tc.err))
		})
	}
}

func TestGetHumanReadableMessage_DoesNotLeakDriverErrors(t *testing.T) {
	driverErr := errors.New(`pq: password authentication failed for user "app"`)

	assert.Equal(t, "Unable to join", GetHumanReadableMessage(NewDatabaseError("Unable to join", driverErr)))
	assert.Equal(t, "An unexpected error occurred", GetHumanReadableMessage(driverErr))
	assert.Equal(t, "An unexpected error occurred", GetHumanReadableMessage(nil))
}

func TestNewProvisioningError_KeepsRawMessage(t *testing.T) {
	err := NewProvisioningError(errors.New(`permission denied to create role`))

	assert.Equal(t, ErrorTypeProvisioning, GetErrorType(err))
	assert.Equal(t, "permission denied to create role", GetHumanReadableMessage(err))
	assert.Equal(t, "schema provisioning failed", NewProvisioningError(nil).Message)
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("smtp 550")
	err := NewNotificationError("welcome email delivery failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeNotification, GetErrorType(err))
	assert.Contains(t, err.Error(), "NOTIFICATION_ERROR")
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(cause))
}

func TestIsDuplicateKeyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23502", Message: "null value in column"}, false},
		{"wrapped pg", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"sqlite text", errors.New("UNIQUE constraint failed: waitlist.email"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyError(tc.err))
		})
	}
}

type emailPayload struct {
	Email string `json:"email" validate:"required,waitlist_email,max=320"`
}

func TestFormatValidationErrors_UsesJSONFieldNames(t *testing.T) {
	v := validator.New()
	assert.NoError(t, v.RegisterValidation("waitlist_email", func(fl validator.FieldLevel) bool { return false }))

	err := v.Struct(emailPayload{Email: "nope"})
	formatted := FormatValidationErrors(err, &emailPayload{})

	assert.Equal(t, []ValidationErrorResponse{{Field: "email", Message: "Invalid email address"}}, formatted)
	assert.Empty(t, FormatValidationErrors(nil, nil))
}
