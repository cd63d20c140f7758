package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking calls
	StateHalfOpen              // Probing for recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config holds the static thresholds shared by all breakers a registry
// creates.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// DefaultConfig matches the fleet defaults: open after 5 consecutive
// failures, close after 3 consecutive probe successes, re-probe after 60s.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		Timeout:          60 * time.Second,
	}
}

// Status is a read-only snapshot of one breaker, shaped for the admin
// surface.
type Status struct {
	Provider        string     `json:"provider"`
	State           string     `json:"state"`
	FailureCount    int        `json:"failure_count"`
	SuccessCount    int        `json:"success_count"`
	LastFailure     *time.Time `json:"last_failure,omitempty"`
	LastStateChange *time.Time `json:"last_state_change,omitempty"`
}

// CircuitBreaker tracks consecutive failures and successes for a single
// provider. All methods are safe for concurrent use; different providers'
// breakers are fully independent.
type CircuitBreaker struct {
	mutex           sync.Mutex
	provider        string
	state           State
	failures        int
	successes       int
	lastFailure     time.Time
	lastStateChange time.Time
	cfg             Config
}

func New(provider string, cfg Config) *CircuitBreaker {
	return &CircuitBreaker{
		provider: provider,
		state:    StateClosed,
		cfg:      cfg,
	}
}

// Allow reports whether a call may proceed. In OPEN it transitions to
// HALF_OPEN once the timeout since the last state change has elapsed; the
// check happens here, lazily, not on a clock.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.lastStateChange) >= cb.cfg.Timeout {
			cb.state = StateHalfOpen
			cb.successes = 0
			cb.lastStateChange = time.Now()
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return true
	}
}

// RecordSuccess resets the failure streak. In HALF_OPEN it counts probe
// successes and closes the circuit once the success threshold is reached.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures = 0
	cb.successes++

	if cb.state == StateHalfOpen && cb.successes >= cb.cfg.SuccessThreshold {
		cb.state = StateClosed
		cb.lastStateChange = time.Now()
	}
}

// RecordFailure counts a consecutive failure. At the failure threshold a
// CLOSED circuit opens; any single failure while HALF_OPEN reopens it.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.successes = 0
	cb.lastFailure = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			cb.lastStateChange = time.Now()
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.lastStateChange = time.Now()
	}
}

// Reset forces the breaker back to CLOSED with all counters zeroed, for
// operator-triggered manual recovery.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.lastFailure = time.Time{}
	cb.lastStateChange = time.Now()
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Provider() string {
	return cb.provider
}

// Status returns a snapshot of the breaker's observable state.
func (cb *CircuitBreaker) Status() Status {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	st := Status{
		Provider:     cb.provider,
		State:        cb.state.String(),
		FailureCount: cb.failures,
		SuccessCount: cb.successes,
	}
	if !cb.lastFailure.IsZero() {
		t := cb.lastFailure
		st.LastFailure = &t
	}
	if !cb.lastStateChange.IsZero() {
		t := cb.lastStateChange
		st.LastStateChange = &t
	}
	return st
}
