package printing

import (
	"context"
	"sync"
	"time"
)

// DefaultAutoPrintDelay gives the browser time to lay out the page before
// the print dialog opens.
const DefaultAutoPrintDelay = 400 * time.Millisecond

// PrintFunc performs one print attempt.
type PrintFunc func(ctx context.Context) (Result, error)

// Session is one print screen: it fires a single automatic attempt after a
// delay and then only prints again on explicit request. Failed attempts are
// never retried on their own.
type Session struct {
	delay time.Duration
	print PrintFunc

	mu       sync.Mutex
	started  bool
	attempts int
	last     Result
	lastErr  error
}

func NewSession(delay time.Duration, fn PrintFunc) *Session {
	if delay < 0 {
		delay = 0
	}
	return &Session{delay: delay, print: fn}
}

// Start waits for the delay and makes the automatic attempt. Calling Start a
// second time returns the outcome of the first without printing again.
func (s *Session) Start(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.started {
		defer s.mu.Unlock()
		return s.last, s.lastErr
	}
	s.started = true
	s.mu.Unlock()

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.record(Result{}, ctx.Err(), false)
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}
	return s.attempt(ctx)
}

// PrintAgain makes an attempt immediately. On a fresh session it is a print
// without the layout delay.
func (s *Session) PrintAgain(ctx context.Context) (Result, error) {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return s.attempt(ctx)
}

func (s *Session) attempt(ctx context.Context) (Result, error) {
	res, err := s.print(ctx)
	s.record(res, err, true)
	return res, err
}

func (s *Session) record(res Result, err error, counted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if counted {
		s.attempts++
	}
	s.last, s.lastErr = res, err
}

// Attempts is the number of print attempts made so far.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
