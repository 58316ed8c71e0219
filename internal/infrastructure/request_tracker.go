package infrastructure

import "sync"

// RequestTracker counts the remote requests currently in flight.
// It backs the global loading indicator.
type RequestTracker struct {
	mu       sync.Mutex
	pending  int
	onChange func(pending int)
}

// NewRequestTracker creates a tracker. onChange, if not nil, is called with the new count after every change.
func NewRequestTracker(onChange func(pending int)) *RequestTracker {
	return &RequestTracker{onChange: onChange}
}

// Start records a request being issued
func (rt *RequestTracker) Start() {
	rt.mu.Lock()
	rt.pending++
	pending := rt.pending
	rt.mu.Unlock()
	rt.notify(pending)
}

// Settle records a request completing, successfully or not
func (rt *RequestTracker) Settle() {
	rt.mu.Lock()
	if rt.pending > 0 {
		rt.pending--
	}
	pending := rt.pending
	rt.mu.Unlock()
	rt.notify(pending)
}

// Pending returns the number of requests in flight
func (rt *RequestTracker) Pending() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.pending
}

// IsLoading returns true while at least one request is in flight
func (rt *RequestTracker) IsLoading() bool {
	return rt.Pending() > 0
}

func (rt *RequestTracker) notify(pending int) {
	if rt.onChange != nil {
		rt.onChange(pending)
	}
}
