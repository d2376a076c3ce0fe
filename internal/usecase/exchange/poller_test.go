package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPoller() Poller {
	return Poller{Interval: time.Millisecond, MaxInterval: 4 * time.Millisecond, Factor: 2}
}

func TestPoller_SucceedsAfterChecks(t *testing.T) {
	calls := 0
	ok, err := fastPoller().Until(context.Background(), time.Second, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestPoller_TimesOut(t *testing.T) {
	start := time.Now()
	ok, err := fastPoller().Until(context.Background(), 30*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPoller_CheckError(t *testing.T) {
	boom := errors.New("boom")
	ok, err := fastPoller().Until(context.Background(), time.Second, func(context.Context) (bool, error) {
		return false, boom
	})

	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestPoller_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	ok, err := fastPoller().Until(ctx, time.Minute, func(context.Context) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	})

	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoller_Normalized(t *testing.T) {
	p := Poller{}.normalized()
	assert.Equal(t, defaultPollInterval, p.Interval)
	assert.Equal(t, defaultPollInterval, p.MaxInterval)
	assert.Equal(t, 1.0, p.Factor)
}
