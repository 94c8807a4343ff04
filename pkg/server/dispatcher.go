package server

import (
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/krzsas/security-manager/pkg/events"
	"github.com/krzsas/security-manager/pkg/metrics"
)

// writeTimeout bounds one drain attempt so a slow peer cannot stall the
// worker; undrained bytes stay buffered and a Write event is requeued.
const writeTimeout = 100 * time.Millisecond

// service couples a registered handler with its event queue, worker
// state and listener
type service struct {
	handler  Handler
	desc     Description
	queue    *events.Queue
	listener net.Listener
	conns    map[string]*conn
	logger   zerolog.Logger
}

// run is the service worker loop: the sole consumer of the service's
// event queue. All processing for the service's connections is
// serialized here, so no two events for the same connection are ever in
// flight concurrently.
func (s *service) run() {
	for {
		select {
		case ev := <-s.queue.Events():
			s.handleEvent(ev)
		case <-s.queue.Done():
			for _, c := range s.conns {
				c.close()
			}
			s.conns = map[string]*conn{}
			return
		}
	}
}

// handleEvent dispatches one typed lifecycle event
func (s *service) handleEvent(ev events.Event) {
	switch ev.Type {
	case events.EventAccept:
		s.accept(ev)
	case events.EventRead:
		s.read(ev)
	case events.EventWrite:
		s.write(ev)
	case events.EventClose:
		s.closeConn(ev.ConnID)
	}
}

func (s *service) accept(ev events.Event) {
	s.logger.Debug().Str("conn_id", ev.ConnID).
		Uint32("uid", ev.Creds.UID).Uint32("gid", ev.Creds.GID).
		Msg("accept event")
	s.conns[ev.ConnID] = &conn{
		id:    ev.ConnID,
		state: connAccepted,
		nc:    ev.Conn,
		creds: ev.Creds,
	}
	metrics.ConnectionsAccepted.WithLabelValues(s.desc.Name).Inc()
	metrics.ConnectionsOpen.WithLabelValues(s.desc.Name).Inc()
}

func (s *service) read(ev events.Event) {
	c, ok := s.conns[ev.ConnID]
	if !ok || c.state == connClosed {
		return
	}
	c.state = connActive
	c.in.Push(ev.Data)

	// Several requests can land in one read; extract and process them
	// all.
	for {
		body, ok, err := c.in.Extract()
		if err != nil {
			s.logger.Warn().Str("conn_id", c.id).Err(err).
				Msg("broken protocol, closing connection")
			metrics.ProtocolErrors.WithLabelValues(s.desc.Name).Inc()
			s.closeConn(c.id)
			return
		}
		if !ok {
			return
		}

		frame, ok := s.handler.HandleMessage(c.creds, body)
		if !ok {
			s.logger.Warn().Str("conn_id", c.id).
				Msg("malformed request, closing connection")
			metrics.ProtocolErrors.WithLabelValues(s.desc.Name).Inc()
			s.closeConn(c.id)
			return
		}
		c.enqueueResponse(frame)
		s.drain(c)
		if c.state == connClosed {
			return
		}
	}
}

func (s *service) write(ev events.Event) {
	c, ok := s.conns[ev.ConnID]
	if !ok || c.state == connClosed {
		return
	}
	c.state = connActive
	s.drain(c)
}

// drain writes as many outbound bytes as the transport accepts within
// one attempt, preserving order. A short write leaves the remainder
// buffered and requeues a Write event for another pass.
func (s *service) drain(c *conn) {
	if len(c.out) == 0 {
		return
	}

	c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
	n, err := c.nc.Write(c.out)
	c.out = c.out[n:]

	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			// Peer is slow; try again on the next Write event. The
			// requeue happens off the worker goroutine so a full queue
			// cannot deadlock the consumer.
			ev := events.Event{Type: events.EventWrite, ConnID: c.id}
			go s.queue.Push(ev)
			return
		}
		s.logger.Debug().Str("conn_id", c.id).Err(err).Msg("write failed")
		s.closeConn(c.id)
		return
	}

	if len(c.out) > 0 {
		ev := events.Event{Type: events.EventWrite, ConnID: c.id}
		go s.queue.Push(ev)
	}
}

// closeConn discards the connection and its buffers. Duplicate closes
// (worker-initiated teardown followed by the reader's Close event) are
// ignored.
func (s *service) closeConn(id string) {
	c, ok := s.conns[id]
	if !ok {
		return
	}
	c.close()
	delete(s.conns, id)
	metrics.ConnectionsOpen.WithLabelValues(s.desc.Name).Dec()
	s.logger.Debug().Str("conn_id", id).Msg("connection closed")
}
