package protocol

import "fmt"

// TransportError reports a failure of the underlying byte stream
// (connect, accept, read, or write). It is fatal to the session and is
// never retried.
type TransportError struct {
	// Op names the socket operation that failed (e.g., "read tag")
	Op string

	// Err is the underlying error
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports malformed framing or a packet that violates the
// protocol (oversize tag, impossible length prefix, unexpected tag).
type ProtocolError struct {
	Reason string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return "protocol: " + e.Reason
}
