//go:build linux

package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krzsas/security-manager/pkg/log"
	"github.com/krzsas/security-manager/pkg/protocol"
	"github.com/krzsas/security-manager/pkg/types"
)

func init() {
	log.Init(log.Config{Level: log.ErrorLevel})
}

// echoHandler frames every received body straight back. Bodies equal to
// "die" are reported as protocol violations.
type echoHandler struct {
	socketPath string
	creds      chan types.Credentials
}

func (h *echoHandler) Description() Description {
	return Description{Name: "echo", SocketPath: h.socketPath}
}

func (h *echoHandler) HandleMessage(creds types.Credentials, body []byte) ([]byte, bool) {
	select {
	case h.creds <- creds:
	default:
	}
	if string(body) == "die" {
		return nil, false
	}
	frame, err := protocol.EncodeFrame(string(body))
	if err != nil {
		return nil, false
	}
	return frame, true
}

// startEchoServer runs a server with one echo service on a temp socket
func startEchoServer(t *testing.T) *echoHandler {
	t.Helper()
	h := &echoHandler{
		socketPath: filepath.Join(t.TempDir(), "echo.sock"),
		creds:      make(chan types.Credentials, 16),
	}

	srv := New()
	require.NoError(t, srv.RegisterService(h))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Wait for the socket to appear
	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", h.socketPath)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return h
}

// frameString builds one wire frame around a CBOR string body
func frameString(t *testing.T, s string) []byte {
	t.Helper()
	frame, err := protocol.EncodeFrame(s)
	require.NoError(t, err)
	return frame
}

// readFrame reads one response frame body from the connection
func readFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	var buf protocol.MessageBuffer
	chunk := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		body, ok, err := buf.Extract()
		require.NoError(t, err)
		if ok {
			return body
		}
		n, err := conn.Read(chunk)
		require.NoError(t, err)
		buf.Push(chunk[:n])
	}
}

func TestRegisterServiceValidation(t *testing.T) {
	srv := New()
	h := &echoHandler{socketPath: "/tmp/echo-a.sock"}
	require.NoError(t, srv.RegisterService(h))

	// Duplicate socket path
	err := srv.RegisterService(&echoHandler{socketPath: "/tmp/echo-a.sock"})
	assert.Error(t, err)
}

func TestRunWithoutServices(t *testing.T) {
	srv := New()
	assert.Error(t, srv.Run(context.Background()))
}

func TestEchoRoundTrip(t *testing.T) {
	h := startEchoServer(t)

	conn, err := net.Dial("unix", h.socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(frameString(t, "hello"))
	require.NoError(t, err)

	body := readFrame(t, conn)
	var got string
	require.NoError(t, decodeString(body, &got))
	assert.Equal(t, "hello", got)
}

func TestSplitFrameAcrossWrites(t *testing.T) {
	h := startEchoServer(t)

	conn, err := net.Dial("unix", h.socketPath)
	require.NoError(t, err)
	defer conn.Close()

	frame := frameString(t, "split")
	_, err = conn.Write(frame[:3])
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = conn.Write(frame[3:])
	require.NoError(t, err)

	body := readFrame(t, conn)
	var got string
	require.NoError(t, decodeString(body, &got))
	assert.Equal(t, "split", got)
}

func TestMultipleFramesInOneWrite(t *testing.T) {
	h := startEchoServer(t)

	conn, err := net.Dial("unix", h.socketPath)
	require.NoError(t, err)
	defer conn.Close()

	payload := append(frameString(t, "one"), frameString(t, "two")...)
	_, err = conn.Write(payload)
	require.NoError(t, err)

	var first, second string
	require.NoError(t, decodeString(readFrame(t, conn), &first))
	require.NoError(t, decodeString(readFrame(t, conn), &second))
	assert.Equal(t, "one", first)
	assert.Equal(t, "two", second)
}

func TestProtocolViolationClosesOnlyThatConnection(t *testing.T) {
	h := startEchoServer(t)

	bad, err := net.Dial("unix", h.socketPath)
	require.NoError(t, err)
	defer bad.Close()

	good, err := net.Dial("unix", h.socketPath)
	require.NoError(t, err)
	defer good.Close()

	_, err = bad.Write(frameString(t, "die"))
	require.NoError(t, err)

	// The offending connection is closed by the daemon
	bad.SetReadDeadline(time.Now().Add(2 * time.Second))
	one := make([]byte, 1)
	_, err = bad.Read(one)
	assert.Error(t, err)

	// The other connection keeps working
	_, err = good.Write(frameString(t, "still here"))
	require.NoError(t, err)
	var got string
	require.NoError(t, decodeString(readFrame(t, good), &got))
	assert.Equal(t, "still here", got)
}

func TestPeerCredentialsDelivered(t *testing.T) {
	h := startEchoServer(t)

	conn, err := net.Dial("unix", h.socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(frameString(t, "creds"))
	require.NoError(t, err)
	readFrame(t, conn)

	select {
	case creds := <-h.creds:
		// The test process talks to itself
		assert.Equal(t, uint32(unixGeteuid()), creds.UID)
	case <-time.After(2 * time.Second):
		t.Fatal("no credentials observed")
	}
}
