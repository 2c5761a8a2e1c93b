package retry

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantTimer fires immediately so retry loops run without real delays.
type instantTimer struct {
	c chan time.Time
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(time.Duration) { t.c <- time.Now() }
func (t *instantTimer) Stop()               {}
func (t *instantTimer) C() <-chan time.Time { return t.c }

func newTestRetryer(attempts int) *Retryer {
	return New(
		WithMaxAttempts(attempts),
		WithBaseDelay(time.Millisecond),
		WithMaxJitter(0),
		WithTimer(newInstantTimer()),
	)
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	r := newTestRetryer(3)

	calls := 0
	value, err := Do(context.Background(), r, func() (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	r := newTestRetryer(3)

	calls := 0
	value, err := Do(context.Background(), r, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	r := newTestRetryer(3)

	opErr := errors.New("always fails")
	calls := 0
	_, err := Do(context.Background(), r, func() (int, error) {
		calls++
		return 0, opErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, opErr)
	assert.Equal(t, 3, calls, "an always-failing operation gets exactly max attempts")
}

func TestDo_SingleAttempt(t *testing.T) {
	r := newTestRetryer(1)

	calls := 0
	_, err := Do(context.Background(), r, func() (int, error) {
		calls++
		return 0, errors.New("fail")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	r := newTestRetryer(5)

	opErr := errors.New("not found")
	calls := 0
	_, err := Do(context.Background(), r, func() (int, error) {
		calls++
		return 0, Permanent(opErr)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, opErr)
	assert.Equal(t, 1, calls, "permanent errors are not retried")
}

func TestDo_ContextCancellation(t *testing.T) {
	r := newTestRetryer(5)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, r, func() (int, error) {
		calls++
		cancel()
		return 0, errors.New("transient")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_NeverPanicsOnNilResult(t *testing.T) {
	r := newTestRetryer(2)

	value, err := Do(context.Background(), r, func() ([]int, error) {
		return nil, errors.New("fail")
	})

	require.Error(t, err)
	assert.Nil(t, value)
}

func TestJitterBackOff_Bounds(t *testing.T) {
	base := 100 * time.Millisecond
	maxJitter := 50 * time.Millisecond
	b := &jitterBackOff{
		base:      base,
		maxJitter: maxJitter,
		rnd:       &lockedRand{rnd: rand.New(rand.NewSource(1))},
	}

	for i := 0; i < 1000; i++ {
		d := b.NextBackOff()
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+maxJitter)
	}
}

func TestJitterBackOff_NoJitter(t *testing.T) {
	base := 100 * time.Millisecond
	b := &jitterBackOff{base: base}

	for i := 0; i < 10; i++ {
		assert.Equal(t, base, b.NextBackOff())
	}
}

func TestJitterBackOff_Deterministic(t *testing.T) {
	newBackOff := func() *jitterBackOff {
		return &jitterBackOff{
			base:      time.Second,
			maxJitter: time.Second,
			rnd:       &lockedRand{rnd: rand.New(rand.NewSource(7))},
		}
	}

	a, b := newBackOff(), newBackOff()
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.NextBackOff(), b.NextBackOff(), "seeded random sources replay the same delays")
	}
}

func TestNew_ClampsAttempts(t *testing.T) {
	r := New(WithMaxAttempts(0), WithTimer(newInstantTimer()))

	calls := 0
	_, err := Do(context.Background(), r, func() (int, error) {
		calls++
		return 0, errors.New("fail")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
