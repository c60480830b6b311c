package sslclient

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ooni/sslclient/internal/model"
)

var (
	// ErrConfiguration indicates an invalid configuration. The errors
	// returned by [New] wrap this error along with the cause.
	ErrConfiguration = errors.New("sslclient: invalid configuration")

	// ErrInvalidCredential indicates that we could not decrypt the
	// client private key using the configured password.
	ErrInvalidCredential = errors.New("sslclient: invalid private key")

	// ErrNoTransport indicates that no transport is attached.
	ErrNoTransport = errors.New("sslclient: no transport attached")

	// ErrTransportAlreadySet indicates that a transport is already attached.
	ErrTransportAlreadySet = errors.New("sslclient: a transport was already set")

	// ErrHandshakeNotCompleted indicates that the operation requires
	// a completed handshake.
	ErrHandshakeNotCompleted = errors.New("sslclient: handshake was not completed")

	// ErrHandshakeCompleted indicates that the operation is only
	// possible before the handshake completes.
	ErrHandshakeCompleted = errors.New("sslclient: handshake was completed")

	// ErrHandshakeStarted indicates that the operation is only
	// possible before the handshake starts.
	ErrHandshakeStarted = model.ErrHandshakeStarted

	// ErrPeerClosedDuringHandshake indicates that the peer closed the
	// connection before the handshake completed.
	ErrPeerClosedDuringHandshake = fmt.Errorf(
		"sslclient: handshake failed: peer did not send data back: %w", io.ErrUnexpectedEOF)

	// ErrPeerClosed indicates that the peer closed the connection
	// while we were waiting for application data.
	ErrPeerClosed = fmt.Errorf("sslclient: peer closed the connection: %w", io.EOF)

	// ErrSessionClosed indicates that the client was shut down or closed.
	ErrSessionClosed = errors.New("sslclient: session closed")

	// ErrPeerSignatureUnavailable indicates that we don't know which
	// signature algorithm the peer used.
	ErrPeerSignatureUnavailable = errors.New("sslclient: peer signature not available")
)

// ClientCertificateRequestedError is the error returned by Handshake when
// the peer requested a client certificate and we did not configure one.
type ClientCertificateRequestedError struct {
	// CAList contains the names of the certificate authorities the
	// peer accepts, in one-line form. It may be empty.
	CAList []string
}

// Error implements error.
func (e *ClientCertificateRequestedError) Error() string {
	if len(e.CAList) <= 0 {
		return "sslclient: server requested a client certificate"
	}
	return fmt.Sprintf("sslclient: server requested a client certificate issued by one of: %s",
		strings.Join(e.CAList, ", "))
}

// configurationError joins ErrConfiguration with its cause.
func configurationError(err error) error {
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}
