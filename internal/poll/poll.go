// Package poll checks an asynchronous job's status at a fixed interval until
// it completes, fails, or runs out of attempts.
package poll

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/manash/designgen/pkg/models"
)

var (
	// ErrUnableToComplete is wrapped by every non-completed outcome.
	ErrUnableToComplete = errors.New("unable to complete")
	ErrFailed           = errors.New("job reported failure")
	ErrExhausted        = errors.New("exceeded maximum poll attempts")
	ErrAlreadyStarted   = errors.New("poller already started")
	ErrNoCheck          = errors.New("poller has no check function")
)

// Overridden in tests.
var (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
)

type State int32

const (
	Idle State = iota
	Polling
	Completed
	Failed
	Exhausted
	Canceled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Exhausted:
		return "exhausted"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

func (s State) IsTerminal() bool {
	return s >= Completed
}

// CheckFunc performs one status request.
type CheckFunc func(ctx context.Context) (*models.StatusResponse, error)

// Poller runs a single polling session. A Poller must not be copied after
// first use and can only be run once.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Check       CheckFunc

	state    atomic.Int32
	attempts atomic.Int32
}

func New(check CheckFunc) *Poller {
	return &Poller{
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
		Check:       check,
	}
}

func (p *Poller) State() State {
	return State(p.state.Load())
}

// Attempts returns the number of status checks issued so far.
func (p *Poller) Attempts() int {
	return int(p.attempts.Load())
}

// Run polls immediately and then once per Interval. It returns the final
// status on completion. Failure and exhaustion both return an error wrapping
// ErrUnableToComplete; a Check error consumes an attempt and polling goes on.
// Each Check is given at most one Interval, so Run returns within roughly
// MaxAttempts × Interval even if the endpoint stalls. An unrecognized status
// is treated as pending. If ctx is cancelled Run returns ctx.Err() and issues
// no further checks.
func (p *Poller) Run(ctx context.Context) (*models.StatusResponse, error) {
	if p.Check == nil {
		return nil, ErrNoCheck
	}
	if !p.state.CompareAndSwap(int32(Idle), int32(Polling)) {
		return nil, ErrAlreadyStarted
	}

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			p.finish(Canceled)
			return nil, err
		}

		p.attempts.Add(1)
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		status, err := p.Check(checkCtx)
		cancel()
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				p.finish(Canceled)
				return nil, ctxErr
			}
			lastErr = err
		case status == nil:
		case status.Status == models.JobCompleted:
			p.finish(Completed)
			return status, nil
		case status.Status == models.JobFailed:
			p.finish(Failed)
			if status.Error != "" {
				return nil, fmt.Errorf("%w: %w: %s", ErrUnableToComplete, ErrFailed, status.Error)
			}
			return nil, fmt.Errorf("%w: %w", ErrUnableToComplete, ErrFailed)
		}

		if attempt >= maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			p.finish(Canceled)
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	p.finish(Exhausted)
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w after %d attempts: %w", ErrUnableToComplete, ErrExhausted, maxAttempts, lastErr)
	}
	return nil, fmt.Errorf("%w: %w after %d attempts", ErrUnableToComplete, ErrExhausted, maxAttempts)
}

func (p *Poller) finish(s State) {
	p.state.Store(int32(s))
}
