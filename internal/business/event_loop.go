package business

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopClosed is returned when dispatching into a closed event loop
var ErrLoopClosed = errors.New("event loop closed")

// EventLoop runs functions one at a time on a single goroutine.
// State owned by the loop must only be touched from functions it runs.
type EventLoop struct {
	events    chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewEventLoop starts an event loop that queues up to buffer events
func NewEventLoop(buffer int) *EventLoop {
	l := &EventLoop{
		events: make(chan func(), buffer),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *EventLoop) run() {
	for {
		select {
		case fn := <-l.events:
			fn()
		case <-l.done:
			return
		}
	}
}

// Dispatch queues fn without waiting for it to run.
// It must not be called from the loop itself when the queue may be full.
func (l *EventLoop) Dispatch(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.events <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Do queues fn and waits until it has run. It must not be called from the loop itself.
func (l *EventLoop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if err := l.Dispatch(func() {
		defer close(ran)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Close stops the loop. Queued events that did not run yet are dropped.
func (l *EventLoop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}
