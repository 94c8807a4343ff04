package types

// App represents one installed application. An app belongs to exactly one
// package and is scoped to a single uid; the same AppID string may exist
// independently under different uids.
type App struct {
	AppID string
	PkgID string
	UID   uint32
}

// Package groups one or more apps under a common package identifier. A
// package row exists for as long as at least one app references it.
type Package struct {
	PkgID string
}

// Privilege is a named capability granted to an app for one uid
type Privilege struct {
	Name string
}

// Credentials identify the peer process on a unix socket connection,
// retrieved from the transport (SO_PEERCRED) at accept time
type Credentials struct {
	UID uint32
	GID uint32
	PID int32
}

// IsRoot reports whether the peer runs as the superuser
func (c Credentials) IsRoot() bool {
	return c.UID == 0
}
