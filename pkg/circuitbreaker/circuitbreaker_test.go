package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(clock *fakeClock, transitions *[]string) CircuitBreaker {
	return NewCircuitBreaker(&Config{
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 1,
		OnStateChange: func(from, to CircuitState) {
			*transitions = append(*transitions, from.String()+"->"+to.String())
		},
		now: clock.now,
	})
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.Equal(t, Closed, cb.State())

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.Equal(t, Open, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "an open breaker must not run the call")
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestCircuitBreaker_HalfOpenProbeCloses(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)

	_ = cb.Call(func() error { return errBoom })
	_ = cb.Call(func() error { return errBoom })

	clock.t = clock.t.Add(time.Minute)

	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, Closed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)

	_ = cb.Call(func() error { return errBoom })
	_ = cb.Call(func() error { return errBoom })
	clock.t = clock.t.Add(2 * time.Minute)

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.Equal(t, Open, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)

	_ = cb.Call(func() error { return errBoom })
	_ = cb.Call(func() error { return nil })
	_ = cb.Call(func() error { return errBoom })

	assert.Equal(t, Closed, cb.State())

	cb.Reset()
	assert.Equal(t, Closed, cb.State())
	assert.Empty(t, transitions)
}
