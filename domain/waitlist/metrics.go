package waitlist

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSent    = "sent"
	resultSkipped = "skipped"
	resultFailed  = "failed"
)

type waitlistMetrics struct {
	signups       *prometheus.CounterVec
	welcomeEmails *prometheus.CounterVec
}

// newWaitlistMetrics registers the domain counters on reg. A nil reg keeps the counters
// unregistered, which is what unit tests want.
func newWaitlistMetrics(reg prometheus.Registerer) *waitlistMetrics {
	m := &waitlistMetrics{
		signups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_signups_total",
				Help: "Waitlist submissions by insert outcome.",
			},
			[]string{"outcome"},
		),
		welcomeEmails: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_welcome_emails_total",
				Help: "Welcome email attempts by result.",
			},
			[]string{"result"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.signups, m.welcomeEmails)
	}
	return m
}

func (m *waitlistMetrics) observeSignup(kind OutcomeKind) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(kind.String()).Inc()
}

func (m *waitlistMetrics) observeWelcome(result string) {
	if m == nil {
		return
	}
	m.welcomeEmails.WithLabelValues(result).Inc()
}
