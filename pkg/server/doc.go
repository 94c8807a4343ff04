/*
Package server implements security-manager's socket-service framework: the
multiplexer that owns every registered service's unix listener, and the
per-service dispatcher that drives connection state from typed lifecycle
events.

# Architecture

	┌────────────────── SOCKET FRAMEWORK ──────────────────┐
	│                                                        │
	│  accept loop ──┐                                       │
	│  read loops  ──┼── events.Queue ──► service worker     │
	│  (producers)   │   (per service)    (sole consumer)    │
	│                                                        │
	│  worker: single switch over Accept/Read/Write/Close    │
	│    Accept → allocate conn (id, creds, buffers)         │
	│    Read   → buffer bytes, extract frames, dispatch     │
	│    Write  → drain outbound buffer in order             │
	│    Close  → discard conn and both buffers              │
	└────────────────────────────────────────────────────────┘

One worker goroutine per registered service serializes all processing for
that service's connections: events for a given connection are handled in
arrival order and never concurrently, so handlers need no internal
locking. The producer side only classifies readiness and enqueues typed
events; it never blocks on service logic.

A malformed frame closes the offending connection and nothing else. Peer
credentials are read once per connection via SO_PEERCRED and travel with
the Accept event.

# Usage

	srv := server.New()
	if err := srv.RegisterService(privilegeService); err != nil {
		return err
	}
	return srv.Run(ctx) // blocks until ctx is cancelled
*/
package server
