/*
Package storage provides the SQLite-backed privilege store for
security-manager.

The store is the authoritative record of which applications belong to which
packages and users, and which privileges each application holds. It is built
on mattn/go-sqlite3 with a single database connection, a prepared statement
cached per logical query kind, and explicit transaction control.

# Architecture

	┌──────────────── PRIVILEGE STORE ────────────────┐
	│                                                   │
	│  Store interface                                  │
	│    └── PrivilegeDB (SQLite implementation)        │
	│          ├── prepared query cache (QueryKind)     │
	│          ├── transaction state machine            │
	│          │     Idle → InTransaction → Idle        │
	│          └── daemon-wide write lock               │
	│                                                   │
	│  Tables: pkg, app, app_privilege, privilege_group │
	└───────────────────────────────────────────────────┘

# Transaction Model

BeginTransaction/CommitTransaction/RollbackTransaction are explicit and
non-reentrant. A nested begin, or a commit/rollback without an open
transaction, signals a KindInternal error. A caller that began a transaction
and failed before commit must roll back before releasing the store, or the
single underlying connection is left unusable for subsequent callers.

Because the connection is single, at most one write sequence may be in
flight daemon-wide. Service workers serialize access through Lock/Unlock.

# Error Handling

  - types.ErrNotFound: lookup matched no row (normal outcome)
  - KindIO: database cannot be opened or queries cannot be prepared;
    fatal at construction
  - KindInternal: constraint violation, transaction-state violation,
    or any other query failure

# Usage

	db, err := storage.Open(storage.DefaultDBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	db.Lock()
	defer db.Unlock()

	if err := db.BeginTransaction(); err != nil {
		return err
	}
	if err := db.UpdateAppPrivileges("app1", 5000, []string{"net"}); err != nil {
		db.RollbackTransaction()
		return err
	}
	return db.CommitTransaction()
*/
package storage
