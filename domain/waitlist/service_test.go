package waitlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akeren/clariolane-waitlist/internal/log"
	"github.com/akeren/clariolane-waitlist/internal/models"
	"github.com/akeren/clariolane-waitlist/pkg/constants"
	apperrors "github.com/akeren/clariolane-waitlist/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestService(t *testing.T) (*MockWaitlistRepository, *MockWelcomeNotifier, WaitlistService) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockRepo := NewMockWaitlistRepository(ctrl)
	mockNotifier := NewMockWelcomeNotifier(ctrl)
	logger := log.NewLoggerWithJSONOutput()
	service := NewWaitlistService(logger, mockRepo, mockNotifier, WithNotifyTimeout(time.Second))
	return mockRepo, mockNotifier, service
}

func waitForSends(t *testing.T, service WaitlistService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, service.Wait(ctx))
}

func TestJoin_NewEntrySendsWelcome(t *testing.T) {
	mockRepo, mockNotifier, service := newTestService(t)

	entry := &models.WaitlistEntry{ID: "id-1", Email: "user@example.com", CreatedAt: time.Now()}
	mockRepo.EXPECT().InsertEntry(gomock.Any(), "user@example.com").Return(Inserted(entry))
	mockNotifier.EXPECT().SendWelcome(gomock.Any(), "user@example.com").Return(nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "user@example.com"})
	require.NoError(t, err)
	assert.Equal(t, constants.MessageJoinedWaitlist, result.Message)
	assert.False(t, result.AlreadyJoined)
	assert.NotEmpty(t, result.JoinedAt)

	waitForSends(t, service)
}

func TestJoin_DuplicateDoesNotSend(t *testing.T) {
	mockRepo, _, service := newTestService(t)

	mockRepo.EXPECT().InsertEntry(gomock.Any(), "user@example.com").Return(AlreadyExists())

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "user@example.com"})
	require.NoError(t, err)
	assert.Equal(t, constants.MessageAlreadyJoined, result.Message)
	assert.True(t, result.AlreadyJoined)

	waitForSends(t, service)
}

func TestJoin_StoresEmailAsSupplied(t *testing.T) {
	mockRepo, mockNotifier, service := newTestService(t)

	mockRepo.EXPECT().InsertEntry(gomock.Any(), "User@Example.COM").Return(AlreadyExists())
	mockNotifier.EXPECT().SendWelcome(gomock.Any(), gomock.Any()).Times(0)

	_, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "User@Example.COM"})
	require.NoError(t, err)
}

func TestJoin_PaddedEmailIsRejected(t *testing.T) {
	_, _, service := newTestService(t)

	for _, email := range []string{" user@example.com", "user@example.com\t", "\nUser@Example.COM "} {
		t.Run(email, func(t *testing.T) {
			result, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: email})
			assert.Nil(t, result)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
			assert.Equal(t, constants.MessageInvalidEmail, apperrors.GetHumanReadableMessage(err))
		})
	}
}

func TestJoin_InvalidEmailNeverReachesStore(t *testing.T) {
	_, _, service := newTestService(t)

	for _, email := range []string{"", "not-an-email", "user@localhost", "a b@c.de", "@example.com"} {
		t.Run(email, func(t *testing.T) {
			result, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: email})
			assert.Nil(t, result)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
			assert.Equal(t, constants.MessageInvalidEmail, apperrors.GetHumanReadableMessage(err))
		})
	}
}

func TestJoin_NilRequest(t *testing.T) {
	_, _, service := newTestService(t)

	result, err := service.Join(context.Background(), nil)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestJoin_StoreFailureIsGeneric(t *testing.T) {
	mockRepo, _, service := newTestService(t)

	driverErr := errors.New("pq: connection refused on 10.0.0.5")
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).Return(Failed(driverErr))

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "user@example.com"})
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeDatabaseError, apperrors.GetErrorType(err))
	assert.Equal(t, constants.MessageJoinUnavailable, apperrors.GetHumanReadableMessage(err))
	assert.ErrorIs(t, err, driverErr)
}

func TestJoin_NotificationFailureStillSucceeds(t *testing.T) {
	mockRepo, mockNotifier, service := newTestService(t)

	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).Return(Inserted(&models.WaitlistEntry{Email: "user@example.com"}))
	mockNotifier.EXPECT().SendWelcome(gomock.Any(), gomock.Any()).
		Return(apperrors.NewNotificationError("welcome email delivery failed", errors.New("500")))

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "user@example.com"})
	require.NoError(t, err)
	assert.Equal(t, constants.MessageJoinedWaitlist, result.Message)

	waitForSends(t, service)
}

func TestJoin_SendOutlivesRequestContext(t *testing.T) {
	mockRepo, mockNotifier, service := newTestService(t)

	release := make(chan struct{})
	sendErr := make(chan error, 1)

	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).Return(Inserted(&models.WaitlistEntry{Email: "user@example.com"}))
	mockNotifier.EXPECT().SendWelcome(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) error {
			<-release
			sendErr <- ctx.Err()
			return nil
		},
	)

	reqCtx, cancel := context.WithCancel(context.Background())
	_, err := service.Join(reqCtx, &JoinWaitlistRequest{Email: "user@example.com"})
	require.NoError(t, err)

	// The response has been produced; the request goes away before the send runs.
	cancel()
	close(release)

	waitForSends(t, service)
	assert.NoError(t, <-sendErr)
}

func TestWait_HonoursDeadline(t *testing.T) {
	mockRepo, mockNotifier, service := newTestService(t)

	release := make(chan struct{})
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).Return(Inserted(&models.WaitlistEntry{Email: "user@example.com"}))
	mockNotifier.EXPECT().SendWelcome(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) error {
			<-release
			return nil
		},
	)

	_, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "user@example.com"})
	require.NoError(t, err)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, service.Wait(short), context.DeadlineExceeded)

	close(release)
	waitForSends(t, service)
}

func TestJoin_NoDispatchAfterWait(t *testing.T) {
	mockRepo, mockNotifier, service := newTestService(t)

	mockRepo.EXPECT().InsertEntry(gomock.Any(), "user@example.com").Return(Inserted(&models.WaitlistEntry{Email: "user@example.com"}))
	mockNotifier.EXPECT().SendWelcome(gomock.Any(), gomock.Any()).Times(0)

	waitForSends(t, service)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "user@example.com"})
	require.NoError(t, err)
	assert.Equal(t, constants.MessageJoinedWaitlist, result.Message)

	waitForSends(t, service)
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "inserted", OutcomeInserted.String())
	assert.Equal(t, "already_exists", OutcomeAlreadyExists.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "unknown", OutcomeKind(42).String())
}
