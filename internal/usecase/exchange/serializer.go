package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/domain/entity"

	"golang.org/x/sync/semaphore"
)

// Policy decides what happens to a request that arrives while another
// exchange holds the session.
type Policy string

const (
	// PolicyQueue admits requests one at a time in arrival order.
	PolicyQueue Policy = "queue"
	// PolicyReject answers entity.ErrBusy immediately.
	PolicyReject Policy = "reject"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyQueue:
		return PolicyQueue, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("unknown queue policy %q (want %q or %q)", s, PolicyQueue, PolicyReject)
	}
}

// Serializer grants exclusive use of the chat session for the duration of one
// exchange. Waiters of semaphore.Weighted are served FIFO, which gives the
// queue policy its arrival ordering.
type Serializer struct {
	policy  Policy
	maxWait time.Duration
	sem     *semaphore.Weighted
	metrics output.MetricsPort

	waiting atomic.Int64
	active  atomic.Bool
}

// NewSerializer builds a serializer. maxWait bounds how long a queued request
// waits for admission; zero waits until the caller's context ends.
func NewSerializer(policy Policy, maxWait time.Duration, metrics output.MetricsPort) *Serializer {
	return &Serializer{
		policy:  policy,
		maxWait: maxWait,
		sem:     semaphore.NewWeighted(1),
		metrics: metrics,
	}
}

// Do runs fn while holding the session. fn is never run concurrently with
// another fn passed to the same Serializer.
func (s *Serializer) Do(ctx context.Context, fn func() error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	s.active.Store(true)
	s.metrics.SetInFlight(1)
	defer func() {
		s.active.Store(false)
		s.metrics.SetInFlight(0)
		s.sem.Release(1)
	}()

	return fn()
}

func (s *Serializer) acquire(ctx context.Context) error {
	if s.policy == PolicyReject {
		if !s.sem.TryAcquire(1) {
			return entity.ErrBusy
		}
		return nil
	}

	waitCtx := ctx
	if s.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.maxWait)
		defer cancel()
	}

	s.metrics.SetQueueDepth(int(s.waiting.Add(1)))
	defer func() { s.metrics.SetQueueDepth(int(s.waiting.Add(-1))) }()

	if err := s.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: no session slot within %s", entity.ErrBusy, s.maxWait)
		}
		return fmt.Errorf("waiting for session: %w", err)
	}
	return nil
}

// Busy reports whether an exchange currently holds the session.
func (s *Serializer) Busy() bool {
	return s.active.Load()
}

// Waiting reports how many requests are queued for admission.
func (s *Serializer) Waiting() int {
	return int(s.waiting.Load())
}
