/*
Package client provides the Go client for the security-manager daemon.

It speaks the length-prefixed CBOR protocol over the privilege service's
unix socket and exposes one method per daemon operation. Status codes map
back to Go errors: types.ErrNotFound for missing rows, ErrAccessDenied for
refused mutations, and a plain error for daemon-side internal failures.

The CLI subcommands and the end-to-end tests are the primary consumers.
*/
package client
