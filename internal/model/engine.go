package model

//
// TLS engine
//

import (
	"crypto/x509"
	"errors"
)

// HandshakeResult is the outcome of a successful handshake step.
type HandshakeResult int

const (
	// HandshakeSuccess means the handshake completed.
	HandshakeSuccess = HandshakeResult(iota)

	// HandshakeNeedsInput means the engine needs more ciphertext
	// from the peer before it can make progress.
	HandshakeNeedsInput

	// HandshakeNeedsPeerIdentity means the peer asked for a client
	// certificate and we have none configured.
	HandshakeNeedsPeerIdentity
)

// String implements fmt.Stringer.
func (r HandshakeResult) String() string {
	switch r {
	case HandshakeSuccess:
		return "success"
	case HandshakeNeedsInput:
		return "needs_input"
	case HandshakeNeedsPeerIdentity:
		return "needs_peer_identity"
	default:
		return "unknown"
	}
}

var (
	// ErrWantRead is returned by Engine.Decrypt when the engine
	// needs more ciphertext to decrypt a full record.
	ErrWantRead = errors.New("engine: want read")

	// ErrZeroReturn is returned by Engine.Decrypt when the engine
	// believes the peer shut down the connection. Some engines also
	// return it when the previous read drained all the records, so
	// callers cannot take it at face value.
	ErrZeroReturn = errors.New("engine: connection was shut down by peer")

	// ErrShutdownUninitialized is returned by Engine.Shutdown when
	// the handshake never started.
	ErrShutdownUninitialized = errors.New("engine: shutdown: uninitialized")

	// ErrShutdownInInit is returned by Engine.Shutdown when the
	// handshake started but did not complete.
	ErrShutdownInInit = errors.New("engine: shutdown while in init")

	// ErrEarlyDataUnsupported is returned by engines that cannot
	// send early data.
	ErrEarlyDataUnsupported = errors.New("engine: early data not supported")

	// ErrNoSecrets indicates the engine cannot export the session
	// identifier and master key (e.g., with TLS 1.3).
	ErrNoSecrets = errors.New("engine: no session secrets available")

	// ErrHandshakeStarted is returned by the setters that only make
	// sense before the handshake starts.
	ErrHandshakeStarted = errors.New("engine: handshake already started")
)

// Session is an opaque resumable session. A session produced by an
// engine can be installed into a new engine of the same kind.
type Session interface {
	// EngineName returns the name of the engine kind that
	// produced this session.
	EngineName() string
}

// CipherSuite describes the negotiated cipher suite.
type CipherSuite struct {
	// ID is the IANA cipher suite identifier.
	ID uint16

	// Name is the IANA cipher suite name.
	Name string

	// Bits is the symmetric key strength in bits.
	Bits int
}

// Engine is the buffer-oriented TLS engine. It never touches the
// transport: it consumes inbound ciphertext that the caller feeds and
// produces outbound ciphertext that the caller drains.
//
// An Engine is not safe for concurrent use.
type Engine interface {
	// StepHandshake runs the handshake until it completes or cannot
	// make progress. A non-nil error is fatal.
	StepHandshake() (HandshakeResult, error)

	// Decrypt returns at most maxLen bytes of cleartext. The returned
	// slice may be empty. ErrWantRead and ErrZeroReturn signal that the
	// engine needs more ciphertext; any other error is fatal.
	Decrypt(maxLen int) ([]byte, error)

	// Encrypt turns data into outbound records.
	Encrypt(data []byte) error

	// WriteEarlyData turns data into outbound early data records.
	WriteEarlyData(data []byte) error

	// EarlyDataStatus returns the early data status.
	EarlyDataStatus() EarlyDataStatus

	// PendingOutbound returns the number of outbound bytes.
	PendingOutbound() int

	// DrainOutbound removes and returns at most n outbound bytes.
	DrainOutbound(n int) []byte

	// FeedInbound appends ciphertext received from the peer.
	FeedInbound(data []byte)

	// Shutdown performs the close-notify exchange. The engine returns
	// ErrShutdownUninitialized or ErrShutdownInInit when the handshake
	// did not get far enough to need one.
	Shutdown() error

	// Free releases the resources held by the engine.
	Free()

	// SetServerName sets the SNI. Must be called before the handshake.
	SetServerName(name string) error

	// SetSession installs a session to resume. Must be called
	// before the handshake.
	SetSession(session Session) error

	// Session returns the current resumable session or nil.
	Session() Session

	// PeerCertificates returns the certificate chain presented by the
	// peer, leaf first. The result is empty for anonymous peers.
	PeerCertificates() []*x509.Certificate

	// CipherSuite returns the negotiated cipher suite.
	CipherSuite() (CipherSuite, bool)

	// VersionCode returns the negotiated protocol version code.
	VersionCode() uint16

	// VerifyResult returns the verification result code, where zero
	// means the peer chain verified.
	VerifyResult() int

	// ClientCAList returns the CA names advertised by the peer when
	// requesting a client certificate.
	ClientCAList() []string

	// OCSPResponse returns the stapled OCSP response or nil.
	OCSPResponse() []byte

	// PeerSignature returns the digest and the signature type that
	// the peer used to sign the handshake, when known.
	PeerSignature() (digest, typ string, ok bool)

	// Secrets returns the session identifier and the master key.
	Secrets() (sessionID, masterKey []byte, err error)

	// CipherList returns the names of the enabled cipher suites.
	CipherList() []string
}
