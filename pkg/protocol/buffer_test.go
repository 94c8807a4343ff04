package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIncomplete(t *testing.T) {
	var buf MessageBuffer

	// Nothing buffered
	_, ok, err := buf.Extract()
	require.NoError(t, err)
	assert.False(t, ok)

	// Prefix only, no body yet
	frame, err := EncodeFrame(&Request{Op: OpGetUserApps, UID: 5000})
	require.NoError(t, err)

	buf.Push(frame[:4])
	_, ok, err = buf.Extract()
	require.NoError(t, err)
	assert.False(t, ok)
}

// Feeding a frame in two partial writes must yield exactly one decoded
// message, identical to feeding all bytes at once.
func TestExtractSplitFrame(t *testing.T) {
	frame, err := EncodeFrame(&Request{Op: OpGetAppPrivileges, AppID: "app1", UID: 5000})
	require.NoError(t, err)

	var whole MessageBuffer
	whole.Push(frame)
	wantBody, ok, err := whole.Extract()
	require.NoError(t, err)
	require.True(t, ok)

	var split MessageBuffer
	split.Push(frame[:3])
	_, ok, err = split.Extract()
	require.NoError(t, err)
	require.False(t, ok, "3 bytes must not yield a frame")

	split.Push(frame[3:])
	gotBody, ok, err := split.Extract()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wantBody, gotBody)

	// No leftover garbage
	_, ok, err = split.Extract()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, split.Len())
}

func TestExtractMultipleFramesInOnePush(t *testing.T) {
	first, err := EncodeFrame(&Request{Op: OpAddApp, AppID: "app1", PkgID: "pkgA", UID: 5000})
	require.NoError(t, err)
	second, err := EncodeFrame(&Request{Op: OpRemoveApp, AppID: "app1", UID: 5000})
	require.NoError(t, err)

	var buf MessageBuffer
	buf.Push(append(append([]byte{}, first...), second...))

	body, ok, err := buf.Extract()
	require.NoError(t, err)
	require.True(t, ok)
	req, err := DecodeRequest(body)
	require.NoError(t, err)
	assert.Equal(t, OpAddApp, req.Op)

	body, ok, err = buf.Extract()
	require.NoError(t, err)
	require.True(t, ok)
	req, err = DecodeRequest(body)
	require.NoError(t, err)
	assert.Equal(t, OpRemoveApp, req.Op)

	_, ok, err = buf.Extract()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtractOversizeFrameIsProtocolViolation(t *testing.T) {
	var buf MessageBuffer
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, MaxFrameSize+1)
	buf.Push(prefix)

	_, _, err := buf.Extract()
	assert.Error(t, err)
}

func TestRequestRoundTrip(t *testing.T) {
	in := &Request{
		Op:         OpUpdateAppPrivileges,
		AppID:      "app1",
		UID:        5000,
		Privileges: []string{"camera", "internet"},
	}
	frame, err := EncodeFrame(in)
	require.NoError(t, err)

	var buf MessageBuffer
	buf.Push(frame)
	body, ok, err := buf.Extract()
	require.NoError(t, err)
	require.True(t, ok)

	out, err := DecodeRequest(body)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeRequestGarbage(t *testing.T) {
	_, err := DecodeRequest([]byte{0xff, 0x00, 0x13, 0x37})
	assert.Error(t, err)

	// Structurally valid CBOR with no op set
	frame, err := EncodeFrame(&Request{})
	require.NoError(t, err)
	_, err = DecodeRequest(frame[4:])
	assert.Error(t, err)
}

func TestResponseRoundTrip(t *testing.T) {
	in := &Response{Status: StatusOK, Names: []string{"camera", "internet"}, PkgIDIsNoMore: true}
	frame, err := EncodeFrame(in)
	require.NoError(t, err)

	out, err := DecodeResponse(frame[4:])
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
