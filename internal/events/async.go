package events

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the queue length used by NewAsync when buffer <= 0.
const DefaultBuffer = 256

// Async decouples slow sinks (network publishers) from the handle.
// Events are queued and delivered in order on a single goroutine. When the
// queue is full new events are dropped and counted.
type Async struct {
	next Notifier
	ch   chan Event
	done chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewAsync starts the delivery goroutine. Call Close to drain and stop it.
func NewAsync(next Notifier, buffer int) *Async {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	a := &Async{
		next: next,
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.ch {
		a.next.Notify(e)
	}
}

// Notify queues e without blocking.
func (a *Async) Notify(e Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.dropped.Add(1)
		return
	}
	select {
	case a.ch <- e:
	default:
		a.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits until queued ones are delivered.
// It is safe to call more than once.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	<-a.done
}
