package services

import (
	"context"
	"sync"
)

// LatestRunner serializes lookups per key so only the response to the newest
// request is ever applied. Beginning a new request cancels the in-flight one
// for the same key; a superseded request's result is detected afterwards and
// discarded by the caller.
type LatestRunner struct {
	mu      sync.Mutex
	seqs    map[string]uint64
	cancels map[string]context.CancelFunc
}

func NewLatestRunner() *LatestRunner {
	return &LatestRunner{
		seqs:    make(map[string]uint64),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Begin registers a new request for key, cancelling any in-flight one. The
// returned check func reports whether this request is still the newest; call
// it before applying the request's result.
func (r *LatestRunner) Begin(parent context.Context, key string) (context.Context, func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cancel, ok := r.cancels[key]; ok {
		cancel()
	}

	r.seqs[key]++
	seq := r.seqs[key]

	ctx, cancel := context.WithCancel(parent)
	r.cancels[key] = cancel

	return ctx, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.seqs[key] == seq
	}
}
