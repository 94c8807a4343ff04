/*
Package privilege implements the privilege service: the socket-facing
surface of the privilege store.

Each complete frame the dispatcher extracts for one of this service's
connections is decoded into a typed request, authorized against the
caller's SO_PEERCRED credentials, executed against the shared store, and
answered with an encoded response. Mutating operations (add/remove app,
privilege-set replacement) require the caller to be root or to target its
own uid, and run inside an explicit store transaction with rollback on
failure.

Store failures map to error responses and keep the connection open;
undecodable frames are protocol violations and close it.
*/
package privilege
