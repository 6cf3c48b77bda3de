package session

// ServerError is a failure the server reported explicitly in an ERROR
// packet. During negotiation it fails the run; during the trailing drain
// the messages are collected on the Result instead.
type ServerError struct {
	// Msg is the server's human-readable message, verbatim
	Msg string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return "server: " + e.Msg
}
