package protocol

import (
	"encoding/binary"
	"fmt"
)

// MessageBuffer accumulates inbound bytes for one connection until a
// complete length-prefixed frame is available. It is robust to partial
// frames arriving across multiple reads and to several frames arriving
// in one read; extra bytes stay buffered for the next Extract.
//
// Not safe for concurrent use: each connection's buffer is owned by its
// service worker.
type MessageBuffer struct {
	data []byte
}

// Push appends raw bytes received from the transport
func (b *MessageBuffer) Push(p []byte) {
	b.data = append(b.data, p...)
}

// Len returns the number of buffered bytes
func (b *MessageBuffer) Len() int {
	return len(b.data)
}

// Reset discards all buffered bytes
func (b *MessageBuffer) Reset() {
	b.data = nil
}

// Extract returns the next complete frame body, or (nil, false, nil)
// when the buffered bytes do not yet hold a full frame. A length prefix
// beyond MaxFrameSize is a protocol violation and returns an error; the
// caller must close the connection.
func (b *MessageBuffer) Extract() ([]byte, bool, error) {
	if len(b.data) < lenPrefixSize {
		return nil, false, nil
	}
	size := binary.BigEndian.Uint32(b.data)
	if size > MaxFrameSize {
		return nil, false, fmt.Errorf("frame length %d exceeds limit %d", size, MaxFrameSize)
	}
	total := lenPrefixSize + int(size)
	if len(b.data) < total {
		return nil, false, nil
	}
	body := make([]byte, size)
	copy(body, b.data[lenPrefixSize:total])
	b.data = b.data[total:]
	return body, true, nil
}
