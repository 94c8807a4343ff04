//go:build linux

package client_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krzsas/security-manager/pkg/client"
	"github.com/krzsas/security-manager/pkg/log"
	"github.com/krzsas/security-manager/pkg/server"
	"github.com/krzsas/security-manager/pkg/service/privilege"
	"github.com/krzsas/security-manager/pkg/storage"
	"github.com/krzsas/security-manager/pkg/types"
)

// startDaemon runs a complete in-process daemon: store, privilege
// service and socket server on a temp socket.
func startDaemon(t *testing.T) string {
	t.Helper()
	log.Init(log.Config{Level: log.ErrorLevel})

	dir := t.TempDir()
	socketPath := filepath.Join(dir, "privilege.sock")

	db, err := storage.Open(filepath.Join(dir, "privilege.db"))
	require.NoError(t, err)

	srv := server.New()
	require.NoError(t, srv.RegisterService(privilege.New(db, socketPath)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		db.Close()
	})

	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return socketPath
}

func TestClientEndToEnd(t *testing.T) {
	socketPath := startDaemon(t)

	c, err := client.New(socketPath)
	require.NoError(t, err)
	defer c.Close()

	// The test process is its own caller; mutate its own uid so the
	// access policy admits the requests without root.
	uid := uint32(os.Getuid())

	require.NoError(t, c.AddApplication("app1", "pkgA", uid))

	require.NoError(t, c.UpdateAppPrivileges("app1", uid, []string{"internet", "camera"}))

	privs, err := c.GetAppPrivileges("app1", uid)
	require.NoError(t, err)
	assert.Equal(t, []string{"camera", "internet"}, privs)

	pkgID, err := c.GetAppPkgID("app1")
	require.NoError(t, err)
	assert.Equal(t, "pkgA", pkgID)

	apps, err := c.GetUserApps(uid)
	require.NoError(t, err)
	assert.Equal(t, []string{"app1"}, apps)

	apps, err = c.GetAppIDsForPkg("pkgA")
	require.NoError(t, err)
	assert.Equal(t, []string{"app1"}, apps)

	exists, err := c.PkgIDExists("pkgA")
	require.NoError(t, err)
	assert.True(t, exists)

	noMore, err := c.RemoveApplication("app1", uid)
	require.NoError(t, err)
	assert.True(t, noMore)

	exists, err = c.PkgIDExists("pkgA")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClientNotFound(t *testing.T) {
	socketPath := startDaemon(t)

	c, err := client.New(socketPath)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.GetAppPkgID("ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClientAccessDenied(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root, every mutation is authorized")
	}
	socketPath := startDaemon(t)

	c, err := client.New(socketPath)
	require.NoError(t, err)
	defer c.Close()

	err = c.AddApplication("app1", "pkgA", uint32(os.Getuid())+1)
	assert.ErrorIs(t, err, client.ErrAccessDenied)

	// The connection survives a denied request
	_, err = c.GetUserApps(uint32(os.Getuid()))
	assert.NoError(t, err)
}

func TestClientSequentialRequestsOnOneConnection(t *testing.T) {
	socketPath := startDaemon(t)

	c, err := client.New(socketPath)
	require.NoError(t, err)
	defer c.Close()

	uid := uint32(os.Getuid())
	for i, app := range []string{"a", "b", "c"} {
		require.NoError(t, c.AddApplication(app, "pkg", uid), "request %d", i)
	}

	apps, err := c.GetAppIDsForPkg("pkg")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, apps)
}
