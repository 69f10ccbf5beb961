package tasks

import (
	"sync"
	"sync/atomic"
)

// CancelFlag is a level-triggered cancellation signal scoped to one batch session.
//
// One writer (the user's cancel command) sets it; the dispatcher and every running invocation read it. The zero
// value is ready to use.
type CancelFlag struct {
	mu        sync.Mutex
	cancelled atomic.Bool
	done      chan struct{}
}

// NewCancelFlag returns a cleared flag.
func NewCancelFlag() *CancelFlag {
	return &CancelFlag{done: make(chan struct{})}
}

// RequestCancel sets the flag. Calling it again has no effect.
func (f *CancelFlag) RequestCancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancelled.Load() {
		return
	}
	f.lazyInit()
	f.cancelled.Store(true)
	close(f.done)
}

// IsCancelled reports whether the flag is set without blocking.
func (f *CancelFlag) IsCancelled() bool {
	return f.cancelled.Load()
}

// Done returns a channel that is closed once the flag is set.
//
// Callers must fetch the channel again after [CancelFlag.Reset].
func (f *CancelFlag) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lazyInit()
	return f.done
}

// Reset clears the flag at the start of a new session.
func (f *CancelFlag) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancelled.Load() || f.done == nil {
		f.done = make(chan struct{})
	}
	f.cancelled.Store(false)
}

func (f *CancelFlag) lazyInit() {
	if f.done == nil {
		f.done = make(chan struct{})
	}
}
