package circuit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"spotbot/internal/logger"
)

type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker counts consecutive failures. It opens once the count reaches
// the threshold and closes again on the next success. It never blocks calls;
// callers decide what an open breaker means.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         State
	failures      int
	threshold     int
	lastFailure   time.Time
	lastErr       string
	name          string
	clock         clockwork.Clock
	onStateChange func(name string, from, to State)
}

func NewCircuitBreaker(name string, threshold int, clock clockwork.Clock) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CircuitBreaker{
		name:      name,
		threshold: threshold,
		clock:     clock,
		state:     StateClosed,
	}
}

func (cb *CircuitBreaker) SetStateChangeHandler(handler func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = handler
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.lastErr = ""
	if cb.state == StateOpen {
		cb.transition(StateClosed)
	}
}

func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.clock.Now()
	if err != nil {
		cb.lastErr = err.Error()
	}
	if cb.state == StateClosed && cb.failures >= cb.threshold {
		cb.transition(StateOpen)
	}
}

// Reset clears the counter, e.g. on an operator resume.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.lastErr = ""
	if cb.state != StateClosed {
		cb.transition(StateClosed)
	}
}

// Restore seeds the counter without firing state change callbacks.
func (cb *CircuitBreaker) Restore(failures int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = failures
	if failures >= cb.threshold {
		cb.state = StateOpen
	} else {
		cb.state = StateClosed
	}
}

func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) Threshold() int { return cb.threshold }

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) LastError() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastErr
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	if cb.onStateChange != nil {
		go cb.onStateChange(cb.name, from, to)
		return
	}
	logger.Warnf("CircuitBreaker %s state change: %s -> %s (failures=%d/%d, last=%q at %s)",
		cb.name, from, to, cb.failures, cb.threshold, cb.lastErr, cb.lastFailure.Format(time.RFC3339))
}
