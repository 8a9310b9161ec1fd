package dispatch

import (
	"context"
	"sync/atomic"
)

// Handle routes calls to the current dispatcher and lets config reloads swap
// it in atomically. Request goroutines and the reload goroutine never touch
// dispatcher fields directly, so a reload mid-flight is safe: in-progress
// dispatches finish on the dispatcher they started with.
type Handle struct {
	current atomic.Pointer[Dispatcher]
}

func NewHandle(d *Dispatcher) *Handle {
	h := &Handle{}
	h.current.Store(d)
	return h
}

// Swap replaces the dispatcher used by subsequent calls.
func (h *Handle) Swap(d *Dispatcher) {
	h.current.Store(d)
}

func (h *Handle) Dispatch(ctx context.Context, req Request) Outcome {
	return h.current.Load().Dispatch(ctx, req)
}
