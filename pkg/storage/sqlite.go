package storage

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/krzsas/security-manager/pkg/log"
	"github.com/krzsas/security-manager/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added covering index on app_privilege (app_name, uid)
const currentSchemaVersion = 1

// DefaultDBPath is where the daemon keeps the privilege database
const DefaultDBPath = "/var/lib/security-manager/privilege.db"

// PrivilegeDB is the SQLite-backed privilege store. The daemon constructs
// exactly one instance at startup and shares it across service workers;
// the instance owns a single database connection, a prepared statement
// per query kind, and the daemon-wide write lock.
type PrivilegeDB struct {
	db    *sql.DB
	stmts map[QueryKind]*sql.Stmt

	// mu serializes write sequences across service workers. The
	// transaction state below is only touched with mu held.
	mu   sync.Mutex
	inTx bool
}

// Open creates or opens the privilege database at the given path and
// prepares the full query set. Any failure here is an IOError: the store
// is unusable without its schema and statements.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*PrivilegeDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, types.IOError("open", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, types.IOError("open", err)
	}

	// SQLite supports one writer at a time; a single connection keeps
	// prepared statements and explicit transactions on the same handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, types.IOError("open", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, types.IOError("open", err)
	}

	stmts, err := prepareQueries(db)
	if err != nil {
		db.Close()
		return nil, types.IOError("prepare", err)
	}

	logger := log.WithComponent("storage")
	logger.Info().Str("path", path).Msg("privilege database opened")

	return &PrivilegeDB{db: db, stmts: stmts}, nil
}

// Close releases the prepared statements and the database connection
func (p *PrivilegeDB) Close() error {
	if p.db == nil {
		return nil
	}
	for _, stmt := range p.stmts {
		stmt.Close()
	}
	return p.db.Close()
}

// Lock acquires the daemon-wide store lock
func (p *PrivilegeDB) Lock() { p.mu.Lock() }

// Unlock releases the daemon-wide store lock
func (p *PrivilegeDB) Unlock() { p.mu.Unlock() }

// BeginTransaction opens an explicit transaction. Nested transactions
// are forbidden: a second begin before commit/rollback is an internal
// error and leaves the original transaction untouched.
func (p *PrivilegeDB) BeginTransaction() error {
	if p.inTx {
		return types.InternalError("begin", fmt.Errorf("transaction already in progress"))
	}
	if _, err := p.db.Exec("BEGIN IMMEDIATE"); err != nil {
		return types.InternalError("begin", err)
	}
	p.inTx = true
	return nil
}

// CommitTransaction commits the open transaction
func (p *PrivilegeDB) CommitTransaction() error {
	if !p.inTx {
		return types.InternalError("commit", fmt.Errorf("no transaction in progress"))
	}
	if _, err := p.db.Exec("COMMIT"); err != nil {
		return types.InternalError("commit", err)
	}
	p.inTx = false
	return nil
}

// RollbackTransaction aborts the open transaction. Callers that began a
// transaction and hit any error must roll back before releasing the
// store, or the connection is left unusable for subsequent callers.
func (p *PrivilegeDB) RollbackTransaction() error {
	if !p.inTx {
		return types.InternalError("rollback", fmt.Errorf("no transaction in progress"))
	}
	if _, err := p.db.Exec("ROLLBACK"); err != nil {
		return types.InternalError("rollback", err)
	}
	p.inTx = false
	return nil
}

// GetAppPkgID resolves the package owning appID. Returns
// types.ErrNotFound when the app is not registered.
func (p *PrivilegeDB) GetAppPkgID(appID string) (string, error) {
	var pkgID string
	err := p.getQuery(QGetPkgID).QueryRow(appID).Scan(&pkgID)
	if err == sql.ErrNoRows {
		return "", types.ErrNotFound
	}
	if err != nil {
		return "", types.InternalError("get app pkg id", err)
	}
	return pkgID, nil
}

// AddApplication registers appID under pkgID for uid. The package row is
// created on first reference. Best wrapped in a caller transaction so the
// package and app inserts land atomically; a duplicate app is an internal
// error (unique constraint).
func (p *PrivilegeDB) AddApplication(appID, pkgID string, uid uint32) error {
	if _, err := p.getQuery(QAddPkg).Exec(pkgID); err != nil {
		return types.InternalError("add application", err)
	}
	if _, err := p.getQuery(QAddApplication).Exec(appID, pkgID, uid); err != nil {
		return types.InternalError("add application", err)
	}
	return nil
}

// RemoveApplication deletes the app row for (appID, uid) and, when that
// was the package's last app, the residual package row as well. The
// returned flag tells the caller whether the package no longer exists.
func (p *PrivilegeDB) RemoveApplication(appID string, uid uint32) (bool, error) {
	pkgID, err := p.GetAppPkgID(appID)
	if errors.Is(err, types.ErrNotFound) {
		// Nothing to remove; the package cannot vanish on our account.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := p.getQuery(QRemoveApplication).Exec(appID, uid); err != nil {
		return false, types.InternalError("remove application", err)
	}

	var remaining int
	if err := p.getQuery(QCountAppsInPkg).QueryRow(pkgID).Scan(&remaining); err != nil {
		return false, types.InternalError("remove application", err)
	}
	if remaining > 0 {
		return false, nil
	}

	if _, err := p.getQuery(QRemovePkg).Exec(pkgID); err != nil {
		return false, types.InternalError("remove application", err)
	}
	return true, nil
}

// GetUserApps returns all app ids registered for uid
func (p *PrivilegeDB) GetUserApps(uid uint32) ([]string, error) {
	return p.queryStrings(QGetUserApps, "get user apps", uid)
}

// GetAppIDsForPkgID returns all app ids belonging to pkgID
func (p *PrivilegeDB) GetAppIDsForPkgID(pkgID string) ([]string, error) {
	return p.queryStrings(QGetAppsInPkg, "get apps in pkg", pkgID)
}

// PkgIDExists probes whether pkgID is registered
func (p *PrivilegeDB) PkgIDExists(pkgID string) (bool, error) {
	var name string
	err := p.getQuery(QPkgIDExists).QueryRow(pkgID).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, types.InternalError("pkg id exists", err)
	}
	return true, nil
}

// GetAppPrivileges returns the privileges granted to (appID, uid),
// deduplicated and sorted lexicographically
func (p *PrivilegeDB) GetAppPrivileges(appID string, uid uint32) ([]string, error) {
	return p.queryStrings(QGetAppPrivileges, "get app privileges", appID, uid)
}

// GetPkgPrivileges returns the privileges granted to any app of
// (pkgID, uid), deduplicated and sorted lexicographically
func (p *PrivilegeDB) GetPkgPrivileges(pkgID string, uid uint32) ([]string, error) {
	return p.queryStrings(QGetPkgPrivileges, "get pkg privileges", pkgID, uid)
}

// RemoveAppPrivileges deletes every privilege row for (appID, uid)
func (p *PrivilegeDB) RemoveAppPrivileges(appID string, uid uint32) error {
	if _, err := p.getQuery(QRemoveAppPrivileges).Exec(appID, uid); err != nil {
		return types.InternalError("remove app privileges", err)
	}
	return nil
}

// UpdateAppPrivileges replaces the complete privilege set of (appID, uid).
// Must be called within an explicit caller-managed transaction: the
// remove-all + add-all sequence is only atomic for concurrent readers
// when bracketed by BeginTransaction/CommitTransaction, and the caller
// must RollbackTransaction on any returned error to avoid partial state.
func (p *PrivilegeDB) UpdateAppPrivileges(appID string, uid uint32, privileges []string) error {
	if err := p.RemoveAppPrivileges(appID, uid); err != nil {
		return err
	}
	for _, priv := range privileges {
		if _, err := p.getQuery(QAddAppPrivilege).Exec(appID, uid, priv); err != nil {
			return types.InternalError("update app privileges", err)
		}
	}
	return nil
}

// GetPrivilegeGroups returns the OS group names implied by privilege
func (p *PrivilegeDB) GetPrivilegeGroups(privilege string) ([]string, error) {
	return p.queryStrings(QGetPrivilegeGroups, "get privilege groups", privilege)
}

// queryStrings runs a single-column query and collects the result
func (p *PrivilegeDB) queryStrings(kind QueryKind, op string, args ...any) ([]string, error) {
	rows, err := p.getQuery(kind).Query(args...)
	if err != nil {
		return nil, types.InternalError(op, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, types.InternalError(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.InternalError(op, err)
	}
	return out, nil
}

// applyPragmas sets required SQLite configuration
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// RunMigrations applies incremental schema migrations based on
// user_version. Exported for the standalone migration utility.
func RunMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the app_privilege covering index for databases created
// before the index was part of schema.sql.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_app_privilege_app
		ON app_privilege (app_name, uid)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
