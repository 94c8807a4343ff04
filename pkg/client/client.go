package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/krzsas/security-manager/pkg/protocol"
	"github.com/krzsas/security-manager/pkg/types"
)

// ErrAccessDenied is returned when the daemon refuses a
// privilege-sensitive operation for the caller's credentials
var ErrAccessDenied = errors.New("access denied")

// dialTimeout bounds connecting to the daemon socket
const dialTimeout = 5 * time.Second

// requestTimeout bounds one request/response round trip
const requestTimeout = 30 * time.Second

// Client speaks the security-manager wire protocol over the privilege
// service socket. Not safe for concurrent use; callers needing
// parallelism open one client per goroutine.
type Client struct {
	conn net.Conn
	buf  protocol.MessageBuffer
}

// New connects to the privilege service socket
func New(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection to the daemon
func (c *Client) Close() error {
	return c.conn.Close()
}

// AddApplication registers appID under pkgID for uid
func (c *Client) AddApplication(appID, pkgID string, uid uint32) error {
	_, err := c.roundTrip(&protocol.Request{
		Op: protocol.OpAddApp, AppID: appID, PkgID: pkgID, UID: uid})
	return err
}

// RemoveApplication unregisters appID for uid. The returned flag is true
// when the owning package no longer exists.
func (c *Client) RemoveApplication(appID string, uid uint32) (bool, error) {
	resp, err := c.roundTrip(&protocol.Request{
		Op: protocol.OpRemoveApp, AppID: appID, UID: uid})
	if err != nil {
		return false, err
	}
	return resp.PkgIDIsNoMore, nil
}

// GetAppPkgID resolves the package owning appID
func (c *Client) GetAppPkgID(appID string) (string, error) {
	resp, err := c.roundTrip(&protocol.Request{
		Op: protocol.OpGetAppPkgID, AppID: appID})
	if err != nil {
		return "", err
	}
	return resp.PkgID, nil
}

// GetAppPrivileges returns the sorted privilege names of (appID, uid)
func (c *Client) GetAppPrivileges(appID string, uid uint32) ([]string, error) {
	resp, err := c.roundTrip(&protocol.Request{
		Op: protocol.OpGetAppPrivileges, AppID: appID, UID: uid})
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// GetPkgPrivileges returns the sorted privilege names of (pkgID, uid)
func (c *Client) GetPkgPrivileges(pkgID string, uid uint32) ([]string, error) {
	resp, err := c.roundTrip(&protocol.Request{
		Op: protocol.OpGetPkgPrivileges, PkgID: pkgID, UID: uid})
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// UpdateAppPrivileges replaces the complete privilege set of (appID, uid)
func (c *Client) UpdateAppPrivileges(appID string, uid uint32, privileges []string) error {
	_, err := c.roundTrip(&protocol.Request{
		Op: protocol.OpUpdateAppPrivileges, AppID: appID, UID: uid,
		Privileges: privileges})
	return err
}

// GetPrivilegeGroups returns the OS groups implied by privilege
func (c *Client) GetPrivilegeGroups(privilege string) ([]string, error) {
	resp, err := c.roundTrip(&protocol.Request{
		Op: protocol.OpGetPrivilegeGroups, Privilege: privilege})
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// GetUserApps returns all app ids registered for uid
func (c *Client) GetUserApps(uid uint32) ([]string, error) {
	resp, err := c.roundTrip(&protocol.Request{
		Op: protocol.OpGetUserApps, UID: uid})
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// GetAppIDsForPkg returns all app ids belonging to pkgID
func (c *Client) GetAppIDsForPkg(pkgID string) ([]string, error) {
	resp, err := c.roundTrip(&protocol.Request{
		Op: protocol.OpGetAppIDsForPkg, PkgID: pkgID})
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// PkgIDExists probes whether pkgID is registered
func (c *Client) PkgIDExists(pkgID string) (bool, error) {
	resp, err := c.roundTrip(&protocol.Request{
		Op: protocol.OpPkgIDExists, PkgID: pkgID})
	if err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// roundTrip sends one request frame and reads exactly one response
// frame, mapping response status to the error taxonomy
func (c *Client) roundTrip(req *protocol.Request) (*protocol.Response, error) {
	frame, err := protocol.EncodeFrame(req)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(requestTimeout)
	c.conn.SetDeadline(deadline)

	if _, err := c.conn.Write(frame); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	buf := make([]byte, 4096)
	for {
		body, ok, err := c.buf.Extract()
		if err != nil {
			return nil, fmt.Errorf("response framing: %w", err)
		}
		if ok {
			resp, err := protocol.DecodeResponse(body)
			if err != nil {
				return nil, err
			}
			return resp, respError(resp)
		}

		n, err := c.conn.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		c.buf.Push(buf[:n])
	}
}

// respError maps a response status to a client-side error
func respError(resp *protocol.Response) error {
	switch resp.Status {
	case protocol.StatusOK:
		return nil
	case protocol.StatusNotFound:
		return types.ErrNotFound
	case protocol.StatusAccessDenied:
		return ErrAccessDenied
	default:
		return fmt.Errorf("daemon reported an internal error")
	}
}
