package model

//
// Enumerations shared by the driver and the engines.
//

import "fmt"

// Version is the SSL/TLS protocol version. When used in configuration
// it selects the version to negotiate; when returned after the handshake
// it describes the negotiated version.
type Version int

const (
	// VersionUnknown is the negotiated version we cannot map.
	VersionUnknown = Version(-1)

	// VersionSSLv23 means "negotiate the best version both peers support".
	VersionSSLv23 = Version(0)

	// VersionSSLv2 is SSL 2.0.
	VersionSSLv2 = Version(1)

	// VersionSSLv3 is SSL 3.0.
	VersionSSLv3 = Version(2)

	// VersionTLSv1 is TLS 1.0.
	VersionTLSv1 = Version(3)

	// VersionTLSv1_1 is TLS 1.1.
	VersionTLSv1_1 = Version(4)

	// VersionTLSv1_2 is TLS 1.2.
	VersionTLSv1_2 = Version(5)

	// VersionTLSv1_3 is TLS 1.3.
	VersionTLSv1_3 = Version(6)
)

var versionString = map[Version]string{
	VersionUnknown: "UNKNOWN",
	VersionSSLv23:  "SSLv23",
	VersionSSLv2:   "SSLv2",
	VersionSSLv3:   "SSLv3",
	VersionTLSv1:   "TLSv1",
	VersionTLSv1_1: "TLSv1.1",
	VersionTLSv1_2: "TLSv1.2",
	VersionTLSv1_3: "TLSv1.3",
}

// String implements fmt.Stringer.
func (v Version) String() string {
	if s, found := versionString[v]; found {
		return s
	}
	return fmt.Sprintf("VERSION_UNKNOWN_%d", int(v))
}

// versionFromCode maps the wire version codes to Version.
var versionFromCode = map[uint16]Version{
	0x0300: VersionSSLv3,
	0x0301: VersionTLSv1,
	0x0302: VersionTLSv1_1,
	0x0303: VersionTLSv1_2,
	0x0304: VersionTLSv1_3,
}

// VersionFromCode maps the raw protocol version code negotiated by an
// engine to a Version. Unmapped codes yield VersionUnknown.
func VersionFromCode(code uint16) Version {
	if v, found := versionFromCode[code]; found {
		return v
	}
	return VersionUnknown
}

// ParseVersion maps a version name (as returned by String) to a Version.
// The empty string selects VersionSSLv23.
func ParseVersion(name string) (Version, error) {
	switch name {
	case "", "SSLv23", "auto":
		return VersionSSLv23, nil
	case "TLSv1", "TLSv1.0":
		return VersionTLSv1, nil
	}
	for v, s := range versionString {
		if v != VersionUnknown && s == name {
			return v, nil
		}
	}
	return VersionUnknown, fmt.Errorf("invalid protocol version: %q", name)
}

// VerifyMode is the peer certificate verification mode.
type VerifyMode int

const (
	// VerifyNone records the verification result without acting on it.
	VerifyNone = VerifyMode(0)

	// VerifyPeer aborts the handshake when verification fails.
	VerifyPeer = VerifyMode(1)

	// VerifyFailIfNoPeerCert is like VerifyPeer and also aborts
	// when the peer does not present any certificate.
	VerifyFailIfNoPeerCert = VerifyMode(2)

	// VerifyClientOnce is like VerifyPeer.
	VerifyClientOnce = VerifyMode(4)
)

// Valid returns whether the mode is one of the defined modes.
func (m VerifyMode) Valid() bool {
	switch m {
	case VerifyNone, VerifyPeer, VerifyFailIfNoPeerCert, VerifyClientOnce:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (m VerifyMode) String() string {
	switch m {
	case VerifyNone:
		return "none"
	case VerifyPeer:
		return "peer"
	case VerifyFailIfNoPeerCert:
		return "fail_if_no_peer_cert"
	case VerifyClientOnce:
		return "client_once"
	default:
		return fmt.Sprintf("VERIFY_MODE_UNKNOWN_%d", int(m))
	}
}

// ParseVerifyMode maps a verification mode name to a VerifyMode.
func ParseVerifyMode(name string) (VerifyMode, error) {
	for _, m := range []VerifyMode{VerifyNone, VerifyPeer, VerifyFailIfNoPeerCert, VerifyClientOnce} {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("invalid verify mode: %q", name)
}

// FileType is the encoding of a certificate or key file.
type FileType int

const (
	// FileTypePEM is the PEM encoding.
	FileTypePEM = FileType(1)

	// FileTypeASN1 is the raw DER encoding.
	FileTypeASN1 = FileType(2)
)

// String implements fmt.Stringer.
func (ft FileType) String() string {
	switch ft {
	case FileTypePEM:
		return "PEM"
	case FileTypeASN1:
		return "ASN1"
	default:
		return fmt.Sprintf("FILE_TYPE_UNKNOWN_%d", int(ft))
	}
}

// EarlyDataStatus tells what happened to the early data we sent.
type EarlyDataStatus int

const (
	// EarlyDataNotSent means we did not send any early data.
	EarlyDataNotSent = EarlyDataStatus(0)

	// EarlyDataRejected means the server rejected our early data.
	EarlyDataRejected = EarlyDataStatus(1)

	// EarlyDataAccepted means the server accepted our early data.
	EarlyDataAccepted = EarlyDataStatus(2)
)

// String implements fmt.Stringer.
func (s EarlyDataStatus) String() string {
	switch s {
	case EarlyDataNotSent:
		return "NOT_SENT"
	case EarlyDataRejected:
		return "REJECTED"
	case EarlyDataAccepted:
		return "ACCEPTED"
	default:
		return fmt.Sprintf("EARLY_DATA_STATUS_UNKNOWN_%d", int(s))
	}
}
