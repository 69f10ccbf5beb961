package tasks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/savedl/internal/shared"
)

// Session runs at most one batch at a time and owns that batch's [CancelFlag].
type Session struct {
	engine  *BatchEngine
	flag    *CancelFlag
	running atomic.Bool

	mu      sync.Mutex
	done    chan struct{}
	last    *BatchResult
	lastErr error
}

// NewSession creates an idle session around engine.
func NewSession(engine *BatchEngine) *Session {
	return &Session{engine: engine, flag: NewCancelFlag()}
}

// Start runs b in the background. It returns false, and does nothing, while another batch is running.
func (s *Session) Start(ctx context.Context, b Batch, sink Sink) bool {
	if !s.begin() {
		return false
	}
	go s.execute(ctx, b, sink)
	return true
}

// Run executes b and waits for it. It fails with [shared.ErrBatchRunning] while another batch is running.
func (s *Session) Run(ctx context.Context, b Batch, sink Sink) (*BatchResult, error) {
	if !s.begin() {
		return nil, shared.ErrBatchRunning
	}
	return s.execute(ctx, b, sink)
}

// RequestCancel cancels the running batch, if any. It is idempotent.
func (s *Session) RequestCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		s.flag.RequestCancel()
	}
}

// Running reports whether a batch is in progress.
func (s *Session) Running() bool {
	return s.running.Load()
}

// Wait blocks until the current batch finishes and returns its result. Without any batch it returns nil.
func (s *Session) Wait() (*BatchResult, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

// begin claims the session. The flag is cleared under mu so a cancel for the new batch cannot be lost.
func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.flag.Reset()
	s.done = make(chan struct{})
	s.last, s.lastErr = nil, nil
	return true
}

func (s *Session) execute(ctx context.Context, b Batch, sink Sink) (*BatchResult, error) {
	result, err := s.engine.Run(ctx, b, s.flag, sink)

	s.mu.Lock()
	s.last, s.lastErr = result, err
	done := s.done
	s.mu.Unlock()

	s.running.Store(false)
	close(done)
	return result, err
}
