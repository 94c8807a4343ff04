//go:build !linux

package server

import (
	"fmt"
	"net"

	"github.com/krzsas/security-manager/pkg/types"
)

// peerCredentials is only implemented for Linux; the daemon targets
// Linux-based mobile/embedded platforms.
func peerCredentials(nc net.Conn) (types.Credentials, error) {
	return types.Credentials{}, fmt.Errorf("peer credentials not supported on this platform")
}
