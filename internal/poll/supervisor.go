package poll

import (
	"context"
	"sync"

	"github.com/manash/designgen/pkg/models"
)

// DeliverFunc receives the outcome of a polling session. It runs on the
// polling goroutine and must not call back into the Supervisor.
type DeliverFunc func(status *models.StatusResponse, err error)

// Supervisor owns at most one polling session at a time. Starting a new
// session cancels the previous one and waits for it to exit.
type Supervisor struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs p in the background. deliver is called exactly once when the
// session ends on its own, and never if it is stopped or superseded first.
func (s *Supervisor) Start(ctx context.Context, p *Poller, deliver DeliverFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		defer cancel()

		status, err := p.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if deliver != nil {
			deliver(status, err)
		}
	}()
}

// Stop cancels the active session, if any, and waits for it to exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Wait blocks until the active session, if any, has finished.
func (s *Supervisor) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Active reports whether a session is still running.
func (s *Supervisor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Supervisor) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}
