/*
Package protocol defines the wire protocol between security-manager and its
local clients.

Every message travels as one frame: a 4-byte big-endian length prefix
followed by a CBOR-encoded body (fxamacker/cbor with deterministic
encoding). Requests carry a numeric op code plus op-specific fields;
responses carry a status code plus result fields. Frame bodies are capped
at MaxFrameSize; anything larger is a protocol violation.

MessageBuffer does the inbound reassembly: bytes are pushed as they arrive
from the socket and complete frame bodies are extracted one at a time,
surviving both partial frames split across reads and several frames packed
into one read.
*/
package protocol
