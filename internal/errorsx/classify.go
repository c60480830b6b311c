package errorsx

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// ClassifyGenericError maps an error occurred during an operation
// to a failure string. This specific classifier is the most generic
// one. You usually use it when mapping I/O errors.
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// If everything else fails, this classifier returns a string
// like "unknown_failure: XXX".
func ClassifyGenericError(err error) string {
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}
	if failure := classifySyscallError(err); failure != "" {
		return failure
	}
	if errors.Is(err, context.Canceled) {
		return FailureInterrupted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureGenericTimeoutError
	}
	if failure := classifyWithStringSuffix(err); failure != "" {
		return failure
	}
	return fmt.Sprintf("unknown_failure: %s", err.Error())
}

// classifySyscallError maps the system call errors we care about.
func classifySyscallError(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ""
	}
	switch errno {
	case syscall.ECONNREFUSED:
		return FailureConnectionRefused
	case syscall.ECONNRESET:
		return FailureConnectionReset
	case syscall.EHOSTUNREACH:
		return FailureHostUnreachable
	case syscall.ENETUNREACH:
		return FailureNetworkUnreachable
	case syscall.ETIMEDOUT:
		return FailureGenericTimeoutError
	case syscall.EINTR:
		return FailureInterrupted
	default:
		return ""
	}
}

// classifyWithStringSuffix performs classification by looking at error
// suffixes. This function returns an empty string if it cannot classify.
func classifyWithStringSuffix(err error) string {
	s := err.Error()
	if strings.HasSuffix(s, "operation was canceled") {
		return FailureInterrupted
	}
	if strings.HasSuffix(s, "EOF") {
		return FailureEOFError
	}
	if strings.HasSuffix(s, "i/o timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "TLS handshake timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "use of closed network connection") {
		return FailureConnectionAlreadyClosed
	}
	return "" // not found
}

// tlsAlertFailures maps the description of the alerts sent by the peer,
// as formatted by crypto/tls and utls, to failure strings.
var tlsAlertFailures = map[string]string{
	"tls: handshake failure":             FailureSSLFailedHandshake,
	"tls: bad certificate":               FailureSSLInvalidCertificate,
	"tls: unsupported certificate":       FailureSSLInvalidCertificate,
	"tls: revoked certificate":           FailureSSLInvalidCertificate,
	"tls: expired certificate":           FailureSSLInvalidCertificate,
	"tls: unknown certificate":           FailureSSLInvalidCertificate,
	"tls: unknown certificate authority": FailureSSLUnknownAuthority,
	"tls: error decrypting message":      FailureSSLFailedHandshake,
	"tls: unrecognized name":             FailureSSLInvalidHostname,
}

// ClassifyTLSHandshakeError maps an error occurred during the TLS
// handshake to a failure string.
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// If this classifier fails, it calls ClassifyGenericError and
// returns to the caller its return value.
func ClassifyTLSHandshakeError(err error) string {
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}
	var x509HostnameError x509.HostnameError
	if errors.As(err, &x509HostnameError) {
		return FailureSSLInvalidHostname
	}
	var x509UnknownAuthorityError x509.UnknownAuthorityError
	if errors.As(err, &x509UnknownAuthorityError) {
		return FailureSSLUnknownAuthority
	}
	var x509CertificateInvalidError x509.CertificateInvalidError
	if errors.As(err, &x509CertificateInvalidError) {
		return FailureSSLInvalidCertificate
	}
	if failure := classifyTLSAlert(err); failure != "" {
		return failure
	}
	return ClassifyGenericError(err)
}

// classifyTLSAlert maps the remote alerts we know about.
func classifyTLSAlert(err error) string {
	s := err.Error()
	const prefix = "remote error: "
	if idx := strings.LastIndex(s, prefix); idx >= 0 {
		return tlsAlertFailures[s[idx+len(prefix):]]
	}
	return ""
}
