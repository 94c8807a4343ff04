package events

import (
	"net"

	"github.com/krzsas/security-manager/pkg/types"
)

// EventType tags a connection lifecycle event. The set is closed: the
// dispatcher handles all four in a single switch, no dynamic
// registration.
type EventType string

const (
	EventAccept EventType = "accept"
	EventRead   EventType = "read"
	EventWrite  EventType = "write"
	EventClose  EventType = "close"
)

// Event is one typed lifecycle event for a connection. The dispatcher
// owns an event only for the duration of processing; events are never
// persisted.
type Event struct {
	Type   EventType
	ConnID string

	// Accept only
	Conn  net.Conn
	Creds types.Credentials

	// Read only
	Data []byte
}

// Queue delivers events to one service worker. The multiplexer side
// produces, the worker is the sole consumer, so handlers need no
// internal locking. Events for a given connection are produced from a
// single reader goroutine and therefore arrive in order.
type Queue struct {
	eventCh chan Event
	stopCh  chan struct{}
}

// NewQueue creates an event queue with the given buffer size
func NewQueue(size int) *Queue {
	return &Queue{
		eventCh: make(chan Event, size),
		stopCh:  make(chan struct{}),
	}
}

// Push enqueues an event for the worker. Blocks while the queue is full
// so no event is ever dropped; only the producing connection goroutine
// stalls, never another service.
func (q *Queue) Push(e Event) {
	select {
	case q.eventCh <- e:
	case <-q.stopCh:
	}
}

// Events returns the worker's receive channel
func (q *Queue) Events() <-chan Event {
	return q.eventCh
}

// Stop unblocks all producers and wakes the worker. Safe to call once.
func (q *Queue) Stop() {
	close(q.stopCh)
}

// Done reports queue shutdown to the worker loop
func (q *Queue) Done() <-chan struct{} {
	return q.stopCh
}
