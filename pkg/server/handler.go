package server

import (
	"github.com/krzsas/security-manager/pkg/types"
)

// Description names a service and the unix socket it listens on
type Description struct {
	Name       string
	SocketPath string
}

// Handler is one registered socket service. The dispatcher calls
// HandleMessage with each complete frame body extracted for one of the
// handler's connections, always from the service's single worker
// goroutine; implementations need no internal locking.
//
// HandleMessage returns the encoded response frame to queue for the
// peer. ok=false marks the message as a protocol violation: the
// dispatcher closes the offending connection without replying.
type Handler interface {
	Description() Description
	HandleMessage(creds types.Credentials, body []byte) (frame []byte, ok bool)
}
