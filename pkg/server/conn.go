package server

import (
	"net"

	"github.com/krzsas/security-manager/pkg/protocol"
	"github.com/krzsas/security-manager/pkg/types"
)

// connState tracks the lifecycle of one connection:
// Accepted → Active → Closed. Active self-loops on Read/Write; any state
// moves to Closed on Close or a fatal protocol error; nothing leaves
// Closed.
type connState int

const (
	connAccepted connState = iota
	connActive
	connClosed
)

// conn is the per-connection bookkeeping owned by one service worker:
// the transport handle, the peer credentials read at accept time, the
// inbound partial-frame buffer and the outbound pending bytes.
type conn struct {
	id    string
	state connState
	nc    net.Conn
	creds types.Credentials

	in  protocol.MessageBuffer
	out []byte
}

// enqueueResponse appends an encoded frame to the outbound buffer.
// Bytes drain in order on Write events.
func (c *conn) enqueueResponse(frame []byte) {
	c.out = append(c.out, frame...)
}

// close tears the connection down and discards both buffers. Any
// request mid-decode is abandoned; no partial response is delivered.
func (c *conn) close() {
	if c.state == connClosed {
		return
	}
	c.state = connClosed
	c.in.Reset()
	c.out = nil
	c.nc.Close()
}
