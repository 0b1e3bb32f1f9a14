package waitlist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akeren/clariolane-waitlist/internal/log"
	"github.com/akeren/clariolane-waitlist/pkg/circuitbreaker"
	"github.com/akeren/clariolane-waitlist/pkg/constants"
	apperrors "github.com/akeren/clariolane-waitlist/pkg/errors"
	"github.com/akeren/clariolane-waitlist/pkg/mailer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=notifier.go -destination=mock_notifier.go -package=waitlist

const welcomeHTML = `
<div style="font-family: sans-serif; padding: 20px;">
  <h1>You're on the list! 🚀</h1>
  <p>Thanks for joining the ClarioLane waitlist. We're excited to have you with us.</p>
  <p>We'll notify you as soon as we're ready to launch.</p>
</div>
`

type WelcomeNotifier interface {
	// SendWelcome makes at most one delivery attempt. A disabled mailer is not an error.
	SendWelcome(ctx context.Context, email string) error
}

type WelcomeSettings struct {
	From             string
	Subject          string
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

type welcomeNotifier struct {
	logger   *log.Logger
	sender   mailer.Sender
	breaker  circuitbreaker.CircuitBreaker
	settings WelcomeSettings
	metrics  *waitlistMetrics
}

func NewWelcomeNotifier(logger *log.Logger, sender mailer.Sender, settings WelcomeSettings, metrics *waitlistMetrics) WelcomeNotifier {
	if strings.TrimSpace(settings.From) == "" {
		settings.From = constants.DefaultWelcomeFrom
	}
	if strings.TrimSpace(settings.Subject) == "" {
		settings.Subject = constants.DefaultWelcomeSubject
	}

	n := &welcomeNotifier{
		logger:   logger,
		sender:   sender,
		settings: settings,
		metrics:  metrics,
	}

	n.breaker = circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
		FailureThreshold: settings.BreakerThreshold,
		RecoveryTimeout:  settings.BreakerCooldown,
		OnStateChange: func(from, to circuitbreaker.CircuitState) {
			logger.Warn("Welcome email circuit changed state", "from", from.String(), "to", to.String())
		},
	})

	return n
}

func (n *welcomeNotifier) SendWelcome(ctx context.Context, email string) error {
	ctx, span := tracer.Start(ctx, "waitlist.SendWelcome")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, n.logger)

	msg := mailer.Message{
		From:    n.settings.From,
		To:      []string{email},
		Subject: n.settings.Subject,
		HTML:    welcomeHTML,
	}

	disabled := false
	err := n.breaker.Call(func() error {
		sendErr := n.sender.Send(ctx, msg)
		if errors.Is(sendErr, mailer.ErrDeliveryDisabled) {
			// Not a provider failure; keep the breaker closed.
			disabled = true
			return nil
		}
		return sendErr
	})

	switch {
	case disabled:
		logger.Info("Skipping welcome email: RESEND_API_KEY not set")
		span.SetAttributes(attribute.String("waitlist.welcome.result", resultSkipped))
		n.metrics.observeWelcome(resultSkipped)
		return nil
	case err == nil:
		span.SetAttributes(attribute.String("waitlist.welcome.result", resultSent))
		n.metrics.observeWelcome(resultSent)
		return nil
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		span.SetAttributes(attribute.String("waitlist.welcome.result", resultSkipped))
		n.metrics.observeWelcome(resultSkipped)
		return apperrors.NewNotificationError("welcome email skipped: provider circuit open", err)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "welcome email failed")
		n.metrics.observeWelcome(resultFailed)
		return apperrors.NewNotificationError("welcome email delivery failed", err)
	}
}
