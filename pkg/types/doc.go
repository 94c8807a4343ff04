/*
Package types defines the shared entity types and error taxonomy for
security-manager.

Entities mirror the privilege database relations: App (per-uid application),
Package (owner of apps), Privilege (named capability), plus the Credentials
triple read from the socket transport.

The error taxonomy distinguishes three outcomes every store caller must
handle separately:

  - types.ErrNotFound: a lookup matched no row; a normal response, not a fault
  - KindIO: the persistence layer is unusable; fatal at store construction
  - KindInternal: a query, constraint, or transaction-state failure; always
    surfaced to the caller, never silently swallowed
*/
package types
