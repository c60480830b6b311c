// Package sigalgs parses signature algorithm preference strings and
// names the signature schemes negotiated by TLS peers.
//
// A preference string is a colon separated list where each element is
// either a KEYTYPE+DIGEST pair (e.g., "RSA+SHA256", "ECDSA+SHA384",
// "RSA-PSS+SHA256") or a TLS 1.3 scheme name (e.g., "ed25519",
// "rsa_pss_rsae_sha512").
package sigalgs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed indicates that the preference string is malformed.
var ErrMalformed = errors.New("sigalgs: malformed preference string")

// ErrUnsupported indicates that the preference string names an
// algorithm we don't know about.
var ErrUnsupported = errors.New("sigalgs: unsupported signature algorithm")

// Scheme is a TLS signature scheme code point.
type Scheme uint16

// These are the signature schemes we know about.
const (
	PKCS1WithSHA1          Scheme = 0x0201
	ECDSAWithSHA1          Scheme = 0x0203
	PKCS1WithSHA256        Scheme = 0x0401
	ECDSAWithP256AndSHA256 Scheme = 0x0403
	PKCS1WithSHA384        Scheme = 0x0501
	ECDSAWithP384AndSHA384 Scheme = 0x0503
	PKCS1WithSHA512        Scheme = 0x0601
	ECDSAWithP521AndSHA512 Scheme = 0x0603
	PSSWithSHA256          Scheme = 0x0804
	PSSWithSHA384          Scheme = 0x0805
	PSSWithSHA512          Scheme = 0x0806
	Ed25519                Scheme = 0x0807
	Ed448                  Scheme = 0x0808
	PSSPSSWithSHA256       Scheme = 0x0809
	PSSPSSWithSHA384       Scheme = 0x080a
	PSSPSSWithSHA512       Scheme = 0x080b
)

// schemeInfo describes a scheme.
type schemeInfo struct {
	// name is the IANA name.
	name string

	// digest is the OpenSSL short name of the digest.
	digest string

	// keyType is the OpenSSL short name of the signature type.
	keyType string
}

var schemes = map[Scheme]schemeInfo{
	PKCS1WithSHA1:          {"rsa_pkcs1_sha1", "SHA1", "RSA"},
	ECDSAWithSHA1:          {"ecdsa_sha1", "SHA1", "id-ecPublicKey"},
	PKCS1WithSHA256:        {"rsa_pkcs1_sha256", "SHA256", "RSA"},
	ECDSAWithP256AndSHA256: {"ecdsa_secp256r1_sha256", "SHA256", "id-ecPublicKey"},
	PKCS1WithSHA384:        {"rsa_pkcs1_sha384", "SHA384", "RSA"},
	ECDSAWithP384AndSHA384: {"ecdsa_secp384r1_sha384", "SHA384", "id-ecPublicKey"},
	PKCS1WithSHA512:        {"rsa_pkcs1_sha512", "SHA512", "RSA"},
	ECDSAWithP521AndSHA512: {"ecdsa_secp521r1_sha512", "SHA512", "id-ecPublicKey"},
	PSSWithSHA256:          {"rsa_pss_rsae_sha256", "SHA256", "RSA-PSS"},
	PSSWithSHA384:          {"rsa_pss_rsae_sha384", "SHA384", "RSA-PSS"},
	PSSWithSHA512:          {"rsa_pss_rsae_sha512", "SHA512", "RSA-PSS"},
	Ed25519:                {"ed25519", "UNDEF", "ED25519"},
	Ed448:                  {"ed448", "UNDEF", "ED448"},
	PSSPSSWithSHA256:       {"rsa_pss_pss_sha256", "SHA256", "RSA-PSS"},
	PSSPSSWithSHA384:       {"rsa_pss_pss_sha384", "SHA384", "RSA-PSS"},
	PSSPSSWithSHA512:       {"rsa_pss_pss_sha512", "SHA512", "RSA-PSS"},
}

// pairs maps KEYTYPE+DIGEST pairs to schemes. The RSA-PSS pairs select
// the rsae variants, which is what servers using RSA keys sign with.
var pairs = map[string]Scheme{
	"RSA+SHA1":       PKCS1WithSHA1,
	"RSA+SHA256":     PKCS1WithSHA256,
	"RSA+SHA384":     PKCS1WithSHA384,
	"RSA+SHA512":     PKCS1WithSHA512,
	"ECDSA+SHA1":     ECDSAWithSHA1,
	"ECDSA+SHA256":   ECDSAWithP256AndSHA256,
	"ECDSA+SHA384":   ECDSAWithP384AndSHA384,
	"ECDSA+SHA512":   ECDSAWithP521AndSHA512,
	"RSA-PSS+SHA256": PSSWithSHA256,
	"RSA-PSS+SHA384": PSSWithSHA384,
	"RSA-PSS+SHA512": PSSWithSHA512,
	"PSS+SHA256":     PSSWithSHA256,
	"PSS+SHA384":     PSSWithSHA384,
	"PSS+SHA512":     PSSWithSHA512,
}

// Parse parses a preference string and returns the schemes in order.
func Parse(value string) ([]Scheme, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: empty string", ErrMalformed)
	}
	var (
		out  []Scheme
		seen = make(map[Scheme]bool)
	)
	for _, entry := range strings.Split(value, ":") {
		scheme, err := parseEntry(entry)
		if err != nil {
			return nil, err
		}
		if seen[scheme] {
			return nil, fmt.Errorf("%w: duplicate entry %q", ErrMalformed, entry)
		}
		seen[scheme] = true
		out = append(out, scheme)
	}
	return out, nil
}

func parseEntry(entry string) (Scheme, error) {
	if entry == "" {
		return 0, fmt.Errorf("%w: empty entry", ErrMalformed)
	}
	if strings.Contains(entry, "+") {
		keyType, digest, _ := strings.Cut(entry, "+")
		if keyType == "" || digest == "" || strings.Contains(digest, "+") {
			return 0, fmt.Errorf("%w: invalid pair %q", ErrMalformed, entry)
		}
		key := strings.ToUpper(keyType) + "+" + strings.ToUpper(digest)
		if scheme, found := pairs[key]; found {
			return scheme, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrUnsupported, entry)
	}
	for scheme, info := range schemes {
		if info.name == entry {
			return scheme, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupported, entry)
}

// String returns the IANA name of the scheme.
func (s Scheme) String() string {
	if info, found := schemes[s]; found {
		return info.name
	}
	return fmt.Sprintf("unknown_0x%04x", uint16(s))
}

// Describe returns the OpenSSL names of the digest and of the signature
// type used by the given scheme. The boolean is false for unknown schemes.
func Describe(s Scheme) (digest, keyType string, ok bool) {
	info, found := schemes[s]
	if !found {
		return "", "", false
	}
	return info.digest, info.keyType, true
}
