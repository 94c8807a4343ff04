//go:build linux

package server

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/krzsas/security-manager/pkg/types"
)

// peerCredentials reads the SO_PEERCRED uid/gid/pid of the connecting
// process. The kernel fills these in; they cannot be forged by the
// peer.
func peerCredentials(nc net.Conn) (types.Credentials, error) {
	unixConn, ok := nc.(*net.UnixConn)
	if !ok {
		return types.Credentials{}, fmt.Errorf("not a unix socket connection")
	}

	rawConn, err := unixConn.SyscallConn()
	if err != nil {
		return types.Credentials{}, fmt.Errorf("syscall conn: %w", err)
	}

	var creds types.Credentials
	var credsErr error
	err = rawConn.Control(func(fd uintptr) {
		ucred, err := unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
		if err != nil {
			credsErr = err
			return
		}
		creds = types.Credentials{
			UID: ucred.Uid,
			GID: ucred.Gid,
			PID: ucred.Pid,
		}
	})
	if err != nil {
		return types.Credentials{}, fmt.Errorf("control: %w", err)
	}
	if credsErr != nil {
		return types.Credentials{}, fmt.Errorf("SO_PEERCRED: %w", credsErr)
	}
	return creds, nil
}
