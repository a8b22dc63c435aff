package circuit

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAtThresholdAndClosesOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker("gateway", 3, clockwork.NewFakeClockAt(time.Unix(0, 0)))
	changes := make(chan State, 4)
	cb.SetStateChangeHandler(func(_ string, _, to State) { changes <- to })

	cb.RecordFailure(errors.New("timeout"))
	cb.RecordFailure(nil)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 2, cb.Failures())

	cb.RecordFailure(errors.New("503"))
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, "503", cb.LastError())
	assert.Equal(t, StateOpen, <-changes)

	cb.RecordSuccess()
	assert.Zero(t, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, StateClosed, <-changes)
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	cb := NewCircuitBreaker("gateway", 2, nil)
	cb.RecordFailure(nil)
	cb.RecordSuccess()
	cb.RecordFailure(nil)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Failures())
}

func TestBreakerRestoreAndReset(t *testing.T) {
	cb := NewCircuitBreaker("gateway", 5, nil)
	cb.Restore(5)
	assert.Equal(t, StateOpen, cb.State())
	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Failures())
	assert.Equal(t, "OPEN", StateOpen.String())
}
