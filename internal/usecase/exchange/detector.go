package exchange

import (
	"context"
	"fmt"
	"time"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/domain/entity"
)

// CompletionDetector decides when the reply to the most recently submitted
// query has finished rendering.
//
// The completion signal selector is scoped to the latest query bubble, but the
// latest visible bubble may still belong to the previous exchange for a short
// while after Enter is pressed. The detector therefore also requires the
// bubble count to exceed the baseline recorded before submission.
type CompletionDetector struct {
	session output.ChatSessionPort
	poller  Poller
}

func NewCompletionDetector(session output.ChatSessionPort, poller Poller) *CompletionDetector {
	return &CompletionDetector{session: session, poller: poller}
}

// Baseline returns the number of query bubbles before a submission.
func (d *CompletionDetector) Baseline(ctx context.Context) (int, error) {
	n, err := d.session.Count(ctx, entity.TargetQueryBubble)
	if err != nil {
		return 0, fmt.Errorf("count query bubbles: %w", err)
	}
	return n, nil
}

// AwaitCompletion returns true once a query bubble newer than baseline exists
// and its completion signal is present. It returns false when timeout elapses.
func (d *CompletionDetector) AwaitCompletion(ctx context.Context, baseline int, timeout time.Duration) (bool, error) {
	return d.poller.Until(ctx, timeout, func(ctx context.Context) (bool, error) {
		turns, err := d.session.Count(ctx, entity.TargetQueryBubble)
		if err != nil {
			return false, fmt.Errorf("count query bubbles: %w", err)
		}
		if turns <= baseline {
			return false, nil
		}

		signals, err := d.session.Count(ctx, entity.TargetCompletionSignal)
		if err != nil {
			return false, fmt.Errorf("check completion signal: %w", err)
		}
		return signals > 0, nil
	})
}
