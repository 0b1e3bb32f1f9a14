package waitlist

import (
	"context"
	"sync"
	"time"

	"github.com/akeren/clariolane-waitlist/internal/log"
	"github.com/akeren/clariolane-waitlist/pkg/constants"
	apperrors "github.com/akeren/clariolane-waitlist/pkg/errors"
	"github.com/akeren/clariolane-waitlist/pkg/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/akeren/clariolane-waitlist/domain/waitlist")

type WaitlistService interface {
	// Join records the address and, for a new entry only, dispatches the welcome email
	// without waiting for it.
	Join(ctx context.Context, req *JoinWaitlistRequest) (*JoinWaitlistResponse, error)

	// Wait blocks until every dispatched welcome email has finished or ctx is done. Entries
	// inserted after Wait is called get no welcome email.
	Wait(ctx context.Context) error
}

type waitlistService struct {
	logger        *log.Logger
	repository    WaitlistRepository
	notifier      WelcomeNotifier
	notifyTimeout time.Duration
	metrics       *waitlistMetrics

	// mu guards draining and every inflight.Add, so no send is added once Wait has started.
	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

type ServiceOption func(*waitlistService)

// WithNotifyTimeout bounds each welcome send, measured from dispatch.
func WithNotifyTimeout(d time.Duration) ServiceOption {
	return func(s *waitlistService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func withMetrics(m *waitlistMetrics) ServiceOption {
	return func(s *waitlistService) {
		s.metrics = m
	}
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, notifier WelcomeNotifier, opts ...ServiceOption) WaitlistService {
	s := &waitlistService{
		logger:        logger,
		repository:    repository,
		notifier:      notifier,
		notifyTimeout: constants.DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *waitlistService) Join(ctx context.Context, req *JoinWaitlistRequest) (*JoinWaitlistResponse, error) {
	ctx, span := tracer.Start(ctx, "waitlist.Join", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("Join received empty request")
		return nil, apperrors.NewInvalidRequestError(constants.MessageInvalidEmail, nil)
	}

	// Stored as supplied: no trimming, no case folding.
	email := req.Email
	if !validation.IsWaitlistEmail(email) {
		logger.Warn("Join received invalid email")
		return nil, apperrors.NewInvalidRequestError(constants.MessageInvalidEmail, nil)
	}

	domain := validation.EmailDomain(email)
	span.SetAttributes(attribute.String("waitlist.email_domain", domain))

	outcome := s.repository.InsertEntry(ctx, email)
	s.metrics.observeSignup(outcome.Kind)
	span.SetAttributes(attribute.String("waitlist.outcome", outcome.Kind.String()))

	switch outcome.Kind {
	case OutcomeInserted:
		logger.Info("Waitlist entry created", "email_domain", domain)
		s.dispatchWelcome(ctx, email)
		return ToJoinWaitlistResponse(outcome, email), nil

	case OutcomeAlreadyExists:
		logger.Info("Waitlist entry already exists", "email_domain", domain)
		return ToJoinWaitlistResponse(outcome, email), nil

	default:
		logger.Error("Failed to create waitlist entry", "email_domain", domain, "error", outcome.Err)
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, apperrors.NewDatabaseError(constants.MessageJoinUnavailable, outcome.Err)
	}
}

// dispatchWelcome detaches the send from the request: the response never waits for it and
// a cancelled request does not cancel it. Values such as the correlated logger survive.
func (s *waitlistService) dispatchWelcome(ctx context.Context, email string) {
	if s.notifier == nil {
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	logger := log.GetLoggerInstanceFromContext(sendCtx, s.logger)

	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		cancel()
		logger.Warn("Welcome email not dispatched: shutting down", "email_domain", validation.EmailDomain(email))
		s.metrics.observeWelcome(resultSkipped)
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()
		defer cancel()

		if err := s.notifier.SendWelcome(sendCtx, email); err != nil {
			logger.Error("Welcome email not delivered", "email_domain", validation.EmailDomain(email), "error", err)
		}
	}()
}

// Wait stops new dispatches, then drains the ones already running.
func (s *waitlistService) Wait(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
