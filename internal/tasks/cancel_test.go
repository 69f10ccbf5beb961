package tasks

import (
	"sync"
	"testing"
)

func TestCancelFlag(t *testing.T) {
	t.Run("zero value", func(t *testing.T) {
		var f CancelFlag
		if f.IsCancelled() {
			t.Fatal("zero value should not be cancelled")
		}
		f.RequestCancel()
		if !f.IsCancelled() {
			t.Error("expected cancelled")
		}
		select {
		case <-f.Done():
		default:
			t.Error("Done should be closed")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		f := NewCancelFlag()
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.RequestCancel()
			}()
		}
		wg.Wait()
		if !f.IsCancelled() {
			t.Error("expected cancelled")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		f := NewCancelFlag()
		old := f.Done()
		f.RequestCancel()
		f.Reset()

		if f.IsCancelled() {
			t.Error("Reset should clear the flag")
		}
		select {
		case <-f.Done():
			t.Error("Done should be open after Reset")
		default:
		}
		select {
		case <-old:
		default:
			t.Error("the previous channel should stay closed")
		}
	})

	t.Run("Reset without cancel keeps channel", func(t *testing.T) {
		f := NewCancelFlag()
		before := f.Done()
		f.Reset()
		if f.Done() != before {
			t.Error("Reset of an uncancelled flag should keep its channel")
		}
	})
}
