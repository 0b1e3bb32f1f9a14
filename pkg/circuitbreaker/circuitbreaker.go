package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is the current circuit breaker state.
type CircuitState int

const (
	// Closed lets calls through.
	Closed CircuitState = iota
	// Open rejects calls until the cooldown passes.
	Open
	// HalfOpen lets calls through to probe whether the dependency recovered.
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls to a flaky dependency. It never repeats a call: a rejected call
// returns ErrCircuitOpen without running fn.
type CircuitBreaker interface {
	Call(fn func() error) error
	State() CircuitState
	Reset()
}

type Config struct {
	FailureThreshold int           // consecutive failures before opening
	RecoveryTimeout  time.Duration // time spent open before probing
	SuccessThreshold int           // probe successes needed to close again

	// OnStateChange, when set, is invoked after every transition. It runs outside the lock.
	OnStateChange func(from, to CircuitState)

	// now is swapped in tests.
	now func() time.Time
}

func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 1,
	}
}

type circuitBreaker struct {
	config      Config
	state       CircuitState
	failures    int
	successes   int
	nextAttempt time.Time
	mutex       sync.Mutex
}

// NewCircuitBreaker applies defaults for nil or zero-valued settings.
func NewCircuitBreaker(config *Config) CircuitBreaker {
	cfg := *DefaultConfig()
	if config != nil {
		if config.FailureThreshold > 0 {
			cfg.FailureThreshold = config.FailureThreshold
		}
		if config.RecoveryTimeout > 0 {
			cfg.RecoveryTimeout = config.RecoveryTimeout
		}
		if config.SuccessThreshold > 0 {
			cfg.SuccessThreshold = config.SuccessThreshold
		}
		cfg.OnStateChange = config.OnStateChange
		cfg.now = config.now
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	return &circuitBreaker{config: cfg, state: Closed}
}

func (cb *circuitBreaker) Call(fn func() error) error {
	cb.mutex.Lock()
	from := cb.state
	if cb.state == Open && !cb.config.now().Before(cb.nextAttempt) {
		cb.state = HalfOpen
		cb.successes = 0
	}
	allowed := cb.state != Open
	to := cb.state
	cb.mutex.Unlock()

	cb.notify(from, to)

	if !allowed {
		return ErrCircuitOpen
	}

	// fn runs without the lock held.
	err := fn()

	cb.mutex.Lock()
	from = cb.state
	if err != nil {
		cb.recordFailure()
	} else {
		cb.recordSuccess()
	}
	to = cb.state
	cb.mutex.Unlock()

	cb.notify(from, to)
	return err
}

func (cb *circuitBreaker) State() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mutex.Lock()
	from := cb.state
	cb.state = Closed
	cb.failures = 0
	cb.successes = 0
	cb.mutex.Unlock()

	cb.notify(from, Closed)
}

func (cb *circuitBreaker) notify(from, to CircuitState) {
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

func (cb *circuitBreaker) recordFailure() {
	cb.failures++

	switch cb.state {
	case Closed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.trip()
		}
	case HalfOpen:
		cb.trip()
	}
}

func (cb *circuitBreaker) trip() {
	cb.state = Open
	cb.nextAttempt = cb.config.now().Add(cb.config.RecoveryTimeout)
}

func (cb *circuitBreaker) recordSuccess() {
	cb.failures = 0

	if cb.state == HalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = Closed
			cb.successes = 0
		}
	}
}
