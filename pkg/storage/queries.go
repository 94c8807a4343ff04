package storage

import (
	"database/sql"
	"fmt"
)

// QueryKind identifies one logical query in the prepared statement cache.
// The set is closed: every kind is prepared exactly once at store
// construction and reused for the lifetime of the store.
type QueryKind int

const (
	QGetPkgPrivileges QueryKind = iota
	QGetAppPrivileges
	QAddPkg
	QAddApplication
	QRemoveApplication
	QAddAppPrivilege
	QRemoveAppPrivileges
	QPkgIDExists
	QGetPkgID
	QGetPrivilegeGroups
	QGetUserApps
	QGetAppsInPkg
	QCountAppsInPkg
	QRemovePkg
)

// queries maps each kind to its SQL text. Ordered results carry an
// ORDER BY so privilege lists come back in a stable lexicographic order.
var queries = map[QueryKind]string{
	QGetPkgPrivileges: `SELECT DISTINCT ap.privilege_name FROM app_privilege ap
		JOIN app a ON ap.app_name = a.name AND ap.uid = a.uid
		WHERE a.pkg_name = ? AND ap.uid = ? ORDER BY ap.privilege_name`,
	QGetAppPrivileges: `SELECT DISTINCT privilege_name FROM app_privilege
		WHERE app_name = ? AND uid = ? ORDER BY privilege_name`,
	QAddPkg:              `INSERT OR IGNORE INTO pkg (name) VALUES (?)`,
	QAddApplication:      `INSERT INTO app (name, pkg_name, uid) VALUES (?, ?, ?)`,
	QRemoveApplication:   `DELETE FROM app WHERE name = ? AND uid = ?`,
	QAddAppPrivilege:     `INSERT INTO app_privilege (app_name, uid, privilege_name) VALUES (?, ?, ?)`,
	QRemoveAppPrivileges: `DELETE FROM app_privilege WHERE app_name = ? AND uid = ?`,
	QPkgIDExists:         `SELECT name FROM pkg WHERE name = ?`,
	QGetPkgID:            `SELECT DISTINCT pkg_name FROM app WHERE name = ?`,
	QGetPrivilegeGroups:  `SELECT group_name FROM privilege_group WHERE privilege_name = ? ORDER BY group_name`,
	QGetUserApps:         `SELECT name FROM app WHERE uid = ?`,
	QGetAppsInPkg:        `SELECT name FROM app WHERE pkg_name = ?`,
	QCountAppsInPkg:      `SELECT COUNT(*) FROM app WHERE pkg_name = ?`,
	QRemovePkg:           `DELETE FROM pkg WHERE name = ?`,
}

// prepareQueries compiles the full query set. sqlite3_prepare is costly,
// so each kind is compiled once here instead of per call. A failure for
// any entry leaves the store unusable and is fatal to construction.
func prepareQueries(db *sql.DB) (map[QueryKind]*sql.Stmt, error) {
	stmts := make(map[QueryKind]*sql.Stmt, len(queries))
	for kind, text := range queries {
		stmt, err := db.Prepare(text)
		if err != nil {
			for _, s := range stmts {
				s.Close()
			}
			return nil, fmt.Errorf("prepare query %d: %w", kind, err)
		}
		stmts[kind] = stmt
	}
	return stmts, nil
}

// getQuery returns the cached statement for kind. database/sql resets
// statement state between calls, so the handle is always ready for a
// fresh bind and execute. Callers are serialized by the store's single
// connection plus the daemon-wide store lock.
func (p *PrivilegeDB) getQuery(kind QueryKind) *sql.Stmt {
	return p.stmts[kind]
}
