package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MaxFrameSize bounds one frame body. A length prefix beyond this is a
// protocol violation and the offending connection is closed.
const MaxFrameSize = 1 << 20

// lenPrefixSize is the fixed big-endian length prefix in front of every
// frame body
const lenPrefixSize = 4

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding: same logical message always produces identical bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder; unknown fields are ignored so older
// daemons tolerate newer clients.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeFrame serializes v and wraps it in a length-prefixed frame
func EncodeFrame(v any) ([]byte, error) {
	body, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode frame body: %w", err)
	}
	if len(body) > MaxFrameSize {
		return nil, fmt.Errorf("frame body %d bytes exceeds limit %d", len(body), MaxFrameSize)
	}
	frame := make([]byte, lenPrefixSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[lenPrefixSize:], body)
	return frame, nil
}

// DecodeRequest parses one frame body into a Request
func DecodeRequest(body []byte) (*Request, error) {
	var req Request
	if err := decMode.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if req.Op == 0 {
		return nil, fmt.Errorf("decode request: missing op")
	}
	return &req, nil
}

// DecodeResponse parses one frame body into a Response
func DecodeResponse(body []byte) (*Response, error) {
	var resp Response
	if err := decMode.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
