package waitlist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akeren/clariolane-waitlist/config/router"
	"github.com/akeren/clariolane-waitlist/internal/log"
	"github.com/akeren/clariolane-waitlist/pkg/constants"
	apperrors "github.com/akeren/clariolane-waitlist/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	calls    int
	response *JoinWaitlistResponse
	err      error
}

func (f *fakeService) Join(ctx context.Context, req *JoinWaitlistRequest) (*JoinWaitlistResponse, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeService) Wait(ctx context.Context) error { return nil }

func newTestRouter(t *testing.T, service WaitlistService) *router.RouterService {
	t.Helper()
	rs := router.CreateRouterService(log.NewLoggerWithWriter(io.Discard, 0), &router.RouterConfig{RequestTimeout: 5 * time.Second})
	rs.MountController(NewWaitlistController(service))
	rs.MountController(NewWaitlistFunctionsController(service))
	return rs
}

func postJoin(rs *router.RouterService, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://clariolane.com")
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func TestJoinHandler_Responses(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		service  *fakeService
		status   int
		expected map[string]any
		calls    int
	}{
		{
			name:     "joined",
			body:     `{"email":"user@example.com"}`,
			service:  &fakeService{response: &JoinWaitlistResponse{Message: constants.MessageJoinedWaitlist}},
			status:   http.StatusOK,
			expected: map[string]any{"message": constants.MessageJoinedWaitlist},
			calls:    1,
		},
		{
			name:     "already joined",
			body:     `{"email":"user@example.com"}`,
			service:  &fakeService{response: &JoinWaitlistResponse{Message: constants.MessageAlreadyJoined, AlreadyJoined: true}},
			status:   http.StatusOK,
			expected: map[string]any{"message": constants.MessageAlreadyJoined},
			calls:    1,
		},
		{
			name:     "missing email",
			body:     `{}`,
			service:  &fakeService{},
			status:   http.StatusBadRequest,
			expected: map[string]any{"error": constants.MessageInvalidEmail},
		},
		{
			name:     "no at sign",
			body:     `{"email":"not-an-email"}`,
			service:  &fakeService{},
			status:   http.StatusBadRequest,
			expected: map[string]any{"error": constants.MessageInvalidEmail},
		},
		{
			name:     "no dot in domain",
			body:     `{"email":"user@localhost"}`,
			service:  &fakeService{},
			status:   http.StatusBadRequest,
			expected: map[string]any{"error": constants.MessageInvalidEmail},
		},
		{
			name:     "leading space",
			body:     `{"email":" user@example.com"}`,
			service:  &fakeService{},
			status:   http.StatusBadRequest,
			expected: map[string]any{"error": constants.MessageInvalidEmail},
		},
		{
			name:     "trailing tab",
			body:     `{"email":"user@example.com\t"}`,
			service:  &fakeService{},
			status:   http.StatusBadRequest,
			expected: map[string]any{"error": constants.MessageInvalidEmail},
		},
		{
			name:     "number instead of string",
			body:     `{"email":123}`,
			service:  &fakeService{},
			status:   http.StatusBadRequest,
			expected: map[string]any{"error": constants.MessageInvalidEmail},
		},
		{
			name:     "malformed json",
			body:     `{"email":`,
			service:  &fakeService{},
			status:   http.StatusBadRequest,
			expected: map[string]any{"error": constants.MessageInvalidBody},
		},
		{
			name:     "store failure",
			body:     `{"email":"user@example.com"}`,
			service:  &fakeService{err: apperrors.NewDatabaseError(constants.MessageJoinUnavailable, errors.New("pq: too many connections"))},
			status:   http.StatusBadRequest,
			expected: map[string]any{"error": constants.MessageJoinUnavailable},
			calls:    1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rs := newTestRouter(t, tc.service)

			w, body := postJoin(rs, "/v1/join-waitlist", tc.body)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.expected, body)
			assert.Equal(t, tc.calls, tc.service.calls)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestJoinHandler_FunctionsAlias(t *testing.T) {
	service := &fakeService{response: &JoinWaitlistResponse{Message: constants.MessageJoinedWaitlist}}
	rs := newTestRouter(t, service)

	w, body := postJoin(rs, "/functions/v1/join-waitlist", `{"email":"user@example.com"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, constants.MessageJoinedWaitlist, body["message"])
}

func TestJoinHandler_Preflight(t *testing.T) {
	rs := newTestRouter(t, &fakeService{})

	req := httptest.NewRequest(http.MethodOptions, "/v1/join-waitlist", nil)
	req.Header.Set("Origin", "https://clariolane.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
