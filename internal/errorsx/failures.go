package errorsx

// These are the failure strings we use. They follow the naming
// conventions of the OONI data format for network failures.
const (
	FailureConnectionAlreadyClosed = "connection_already_closed"
	FailureConnectionRefused       = "connection_refused"
	FailureConnectionReset         = "connection_reset"
	FailureEOFError                = "eof_error"
	FailureGenericTimeoutError     = "generic_timeout_error"
	FailureHostUnreachable         = "host_unreachable"
	FailureInterrupted             = "interrupted"
	FailureNetworkUnreachable      = "network_unreachable"
	FailureSSLFailedHandshake      = "ssl_failed_handshake"
	FailureSSLInvalidCertificate   = "ssl_invalid_certificate"
	FailureSSLInvalidHostname      = "ssl_invalid_hostname"
	FailureSSLUnknownAuthority     = "ssl_unknown_authority"
)

// These are the operations we wrap errors for.
const (
	// ConnectOperation is the operation where we connect a transport.
	ConnectOperation = "connect"

	// TLSHandshakeOperation is the TLS handshake.
	TLSHandshakeOperation = "tls_handshake"

	// ReadOperation is a transport or engine read.
	ReadOperation = "read"

	// WriteOperation is a transport or engine write.
	WriteOperation = "write"

	// TLSShutdownOperation is the close-notify exchange.
	TLSShutdownOperation = "tls_shutdown"

	// TopLevelOperation is used when we don't know the operation.
	TopLevelOperation = "top_level"
)
