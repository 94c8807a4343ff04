package storage

// Store defines the interface for privilege database access.
// Implemented by the SQLite-backed PrivilegeDB.
//
// Lookups that match no row return types.ErrNotFound; every other failure
// is a types.Error with KindIO or KindInternal. Callers that need a write
// sequence spanning several operations must wrap it in BeginTransaction/
// CommitTransaction and roll back on any error, and must hold Lock for
// the whole sequence when the store is shared between service workers.
type Store interface {
	// Transactions. Non-reentrant: BeginTransaction while a transaction
	// is open, or Commit/Rollback without one, is an internal error.
	BeginTransaction() error
	CommitTransaction() error
	RollbackTransaction() error

	// Apps
	GetAppPkgID(appID string) (string, error)
	AddApplication(appID, pkgID string, uid uint32) error
	RemoveApplication(appID string, uid uint32) (pkgIDIsNoMore bool, err error)
	GetUserApps(uid uint32) ([]string, error)
	GetAppIDsForPkgID(pkgID string) ([]string, error)

	// Packages
	PkgIDExists(pkgID string) (bool, error)

	// Privileges
	GetAppPrivileges(appID string, uid uint32) ([]string, error)
	GetPkgPrivileges(pkgID string, uid uint32) ([]string, error)
	UpdateAppPrivileges(appID string, uid uint32, privileges []string) error
	RemoveAppPrivileges(appID string, uid uint32) error
	GetPrivilegeGroups(privilege string) ([]string, error)

	// Lock serializes multi-operation write sequences across service
	// workers. The underlying database connection is single, so at most
	// one transaction may be in flight daemon-wide.
	Lock()
	Unlock()

	// Utility
	Close() error
}

// compile-time check
var _ Store = (*PrivilegeDB)(nil)
