package exchange

import (
	"context"
	"time"
)

const (
	defaultPollInterval    = 250 * time.Millisecond
	defaultPollMaxInterval = 2 * time.Second
	defaultPollFactor      = 1.5
)

// Poller repeatedly evaluates a check with growing intervals until it reports
// true or a timeout elapses. Waiting happens on timers, so a long wait never
// pins anything but the calling goroutine.
type Poller struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Factor      float64
}

func DefaultPoller() Poller {
	return Poller{
		Interval:    defaultPollInterval,
		MaxInterval: defaultPollMaxInterval,
		Factor:      defaultPollFactor,
	}
}

// Until returns (true, nil) once check succeeds, (false, nil) when timeout
// elapses first, and (false, err) when the check or ctx fails.
func (p Poller) Until(ctx context.Context, timeout time.Duration, check func(context.Context) (bool, error)) (bool, error) {
	p = p.normalized()
	deadline := time.Now().Add(timeout)
	interval := p.Interval

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		ok, err := check(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		wait := interval
		if wait > remaining {
			wait = remaining
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}

		interval = time.Duration(float64(interval) * p.Factor)
		if interval > p.MaxInterval {
			interval = p.MaxInterval
		}
	}
}

func (p Poller) normalized() Poller {
	if p.Interval <= 0 {
		p.Interval = defaultPollInterval
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = p.Interval
	}
	if p.Factor < 1 {
		p.Factor = 1
	}
	return p
}
