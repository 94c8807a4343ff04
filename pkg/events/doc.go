/*
Package events defines the typed connection lifecycle events that drive
security-manager's socket services.

Four event kinds exist: Accept (new connection with its peer credentials),
Read (bytes arrived), Write (outbound buffer may drain), Close (connection
gone). The socket multiplexer produces events onto a per-service Queue; the
service's single worker goroutine is the only consumer, which keeps handler
code free of locks and guarantees per-connection ordering.
*/
package events
