package tlsengine

//
// Peer certificate chain verification
//

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"strings"
	"time"
)

// These are the verification result codes we produce. They are
// compatible with the X509_V_* codes used by OpenSSL.
const (
	VerifyOK                           = 0
	VerifyUnspecified                  = 1
	VerifyCertSignatureFailure         = 7
	VerifyCertNotYetValid              = 9
	VerifyCertHasExpired               = 10
	VerifyDepthZeroSelfSignedCert      = 18
	VerifySelfSignedCertInChain        = 19
	VerifyUnableToGetIssuerCertLocally = 20
	VerifyCertChainTooLong             = 22
	VerifyInvalidCA                    = 24
	VerifyPathLengthExceeded           = 25
	VerifyInvalidPurpose               = 26
	VerifyUnhandledCriticalExtension   = 34
	VerifyPermittedViolation           = 47
	VerifyHostnameMismatch             = 62
)

var verifyResultStrings = map[int]string{
	VerifyOK:                           "ok",
	VerifyUnspecified:                  "unspecified certificate verification error",
	VerifyCertSignatureFailure:         "certificate signature failure",
	VerifyCertNotYetValid:              "certificate is not yet valid",
	VerifyCertHasExpired:               "certificate has expired",
	VerifyDepthZeroSelfSignedCert:      "self signed certificate",
	VerifySelfSignedCertInChain:        "self signed certificate in certificate chain",
	VerifyUnableToGetIssuerCertLocally: "unable to get local issuer certificate",
	VerifyCertChainTooLong:             "certificate chain too long",
	VerifyInvalidCA:                    "invalid CA certificate",
	VerifyPathLengthExceeded:           "path length constraint exceeded",
	VerifyInvalidPurpose:               "unsupported certificate purpose",
	VerifyUnhandledCriticalExtension:   "unhandled critical extension",
	VerifyPermittedViolation:           "permitted subtree violation",
	VerifyHostnameMismatch:             "Hostname mismatch",
}

// VerifyResultString returns the human readable description of a
// verification result code. Unknown codes get a generic description.
func VerifyResultString(code int) string {
	if s, found := verifyResultStrings[code]; found {
		return s
	}
	return fmt.Sprintf("unknown certificate verification error (%d)", code)
}

// VerifyError is the error returned when the peer chain does not verify
// and the verification mode requires aborting the handshake.
type VerifyError struct {
	// Code is the verification result code.
	Code int

	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *VerifyError) Error() string {
	return fmt.Sprintf("tlsengine: certificate verify failed: %s", VerifyResultString(e.Code))
}

// Unwrap allows to access the underlying error.
func (e *VerifyError) Unwrap() error {
	return e.Err
}

// errNoPeerCertificate indicates that the peer did not send any certificate.
var errNoPeerCertificate = errors.New("tlsengine: peer did not return a certificate")

// maxChainDepth is the maximum number of certificates in a chain.
const maxChainDepth = 100

// verifyChain verifies the chain sent by the peer against roots, which
// may be nil to use the system pool, and returns the verification result
// code along with the x509 error that caused it. Hostnames are not checked.
func verifyChain(chain []*x509.Certificate, roots *x509.CertPool, now time.Time) (int, error) {
	if len(chain) <= 0 {
		return VerifyUnspecified, errNoPeerCertificate
	}
	if len(chain) > maxChainDepth {
		return VerifyCertChainTooLong, nil
	}
	intermediates := x509.NewCertPool()
	for _, cert := range chain[1:] {
		intermediates.AddCert(cert)
	}
	opts := x509.VerifyOptions{
		CurrentTime:   now,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		Roots:         roots,
	}
	_, err := chain[0].Verify(opts)
	return verifyErrorCode(chain, now, err), err
}

// verifyErrorCode maps the error returned by x509 to a result code.
func verifyErrorCode(chain []*x509.Certificate, now time.Time, err error) int {
	if err == nil {
		return VerifyOK
	}
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) {
		switch invalid.Reason {
		case x509.Expired:
			if invalid.Cert != nil && now.Before(invalid.Cert.NotBefore) {
				return VerifyCertNotYetValid
			}
			return VerifyCertHasExpired
		case x509.NotAuthorizedToSign, x509.CANotAuthorizedForExtKeyUsage:
			return VerifyInvalidCA
		case x509.TooManyIntermediates:
			return VerifyPathLengthExceeded
		case x509.IncompatibleUsage:
			return VerifyInvalidPurpose
		case x509.CANotAuthorizedForThisName, x509.NameConstraintsWithoutSANs, x509.NameMismatch:
			return VerifyPermittedViolation
		default:
			return VerifyUnspecified
		}
	}
	var unknown x509.UnknownAuthorityError
	if errors.As(err, &unknown) {
		switch {
		case len(chain) == 1 && isSelfSigned(chain[0]):
			return VerifyDepthZeroSelfSignedCert
		case isSelfSigned(chain[len(chain)-1]):
			return VerifySelfSignedCertInChain
		default:
			return VerifyUnableToGetIssuerCertLocally
		}
	}
	var hostname x509.HostnameError
	if errors.As(err, &hostname) {
		return VerifyHostnameMismatch
	}
	var critical x509.UnhandledCriticalExtension
	if errors.As(err, &critical) {
		return VerifyUnhandledCriticalExtension
	}
	var insecure x509.InsecureAlgorithmError
	if errors.As(err, &insecure) {
		return VerifyCertSignatureFailure
	}
	var system x509.SystemRootsError
	if errors.As(err, &system) {
		return VerifyUnableToGetIssuerCertLocally
	}
	return VerifyUnspecified
}

func isSelfSigned(cert *x509.Certificate) bool {
	return cert.CheckSignatureFrom(cert) == nil
}

// oidShortNames maps attribute type OIDs to the short names used
// by the one-line distinguished name format.
var oidShortNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.5":                    "serialNumber",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.9":                    "street",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"2.5.4.17":                   "postalCode",
	"1.2.840.113549.1.9.1":       "emailAddress",
	"0.9.2342.19200300.100.1.1":  "UID",
	"0.9.2342.19200300.100.1.25": "DC",
}

// formatDistinguishedName converts a DER encoded distinguished name to
// the one-line "/C=US/O=Example/CN=Example CA" format.
func formatDistinguishedName(der []byte) (string, error) {
	var rdns pkix.RDNSequence
	rest, err := asn1.Unmarshal(der, &rdns)
	if err != nil {
		return "", err
	}
	if len(rest) > 0 {
		return "", errors.New("tlsengine: trailing data after distinguished name")
	}
	var sb strings.Builder
	for _, rdn := range rdns {
		for _, atv := range rdn {
			name, found := oidShortNames[atv.Type.String()]
			if !found {
				name = atv.Type.String()
			}
			fmt.Fprintf(&sb, "/%s=%v", name, atv.Value)
		}
	}
	return sb.String(), nil
}

// formatAcceptableCAs formats the CA names sent by the peer along with a
// CertificateRequest. Names we cannot parse are skipped.
func formatAcceptableCAs(cas [][]byte) []string {
	out := []string{}
	for _, der := range cas {
		if name, err := formatDistinguishedName(der); err == nil {
			out = append(out, name)
		}
	}
	return out
}
