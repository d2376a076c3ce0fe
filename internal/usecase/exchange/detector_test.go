package exchange

import (
	"context"
	"testing"
	"time"

	"chat-bridge/internal/domain/entity"
	"chat-bridge/internal/usecase/exchange/exchangetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionDetector_IgnoresStaleSignal(t *testing.T) {
	session := exchangetest.NewFakeSession()
	session.Seed("previous question", "previous answer")
	session.SubmitLag = 3
	session.CompleteAfter = 2

	ctx := context.Background()
	detector := NewCompletionDetector(session, fastPoller())

	// The stale turn already carries a completed marker.
	signals, err := session.Count(ctx, entity.TargetCompletionSignal)
	require.NoError(t, err)
	require.Equal(t, 1, signals)

	baseline, err := detector.Baseline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, baseline)

	prompt, err := session.Locate(ctx, entity.TargetPromptInput)
	require.NoError(t, err)
	require.NoError(t, session.Type(ctx, prompt, "new question"))
	require.NoError(t, session.PressEnter(ctx, prompt))

	done, err := detector.AwaitCompletion(ctx, baseline, time.Second)
	require.NoError(t, err)
	require.True(t, done)

	turns := session.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "new question", turns[1].Query)
	assert.True(t, turns[1].Complete, "detector fired before the new turn completed")
}

func TestCompletionDetector_TimesOutWithoutSignal(t *testing.T) {
	session := exchangetest.NewFakeSession()
	session.CompleteAfter = 1 << 30

	ctx := context.Background()
	detector := NewCompletionDetector(session, fastPoller())

	prompt, err := session.Locate(ctx, entity.TargetPromptInput)
	require.NoError(t, err)
	require.NoError(t, session.Type(ctx, prompt, "hello"))
	require.NoError(t, session.PressEnter(ctx, prompt))

	done, err := detector.AwaitCompletion(ctx, 0, 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestCompletionDetector_SessionError(t *testing.T) {
	session := exchangetest.NewFakeSession()
	session.Kill()

	done, err := NewCompletionDetector(session, fastPoller()).AwaitCompletion(context.Background(), 0, time.Second)
	assert.Error(t, err)
	assert.False(t, done)
}
