package model

//
// Transport
//

// Transport is the blocking byte stream carrying TLS ciphertext. The
// caller supplies it (typically a TCP socket) and owns its lifecycle.
type Transport interface {
	// Send sends all the given bytes or returns an error.
	Send(data []byte) error

	// Recv blocks until it receives at most maxLen bytes. An empty
	// result with a nil error means the peer closed the stream.
	Recv(maxLen int) ([]byte, error)
}
