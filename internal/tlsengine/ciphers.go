package tlsengine

//
// Cipher suites
//

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// cipherSuiteByName returns the cipher suite with the given IANA name.
func cipherSuiteByName(name string) (*tls.CipherSuite, bool) {
	for _, cs := range allCipherSuites() {
		if cs.Name == name {
			return cs, true
		}
	}
	return nil, false
}

// cipherSuiteByID returns the cipher suite with the given ID.
func cipherSuiteByID(id uint16) (*tls.CipherSuite, bool) {
	for _, cs := range allCipherSuites() {
		if cs.ID == id {
			return cs, true
		}
	}
	return nil, false
}

func allCipherSuites() []*tls.CipherSuite {
	return append(tls.CipherSuites(), tls.InsecureCipherSuites()...)
}

// parseCipherSuites maps IANA names to cipher suite IDs.
func parseCipherSuites(names []string) ([]uint16, error) {
	var out []uint16
	for _, name := range names {
		cs, found := cipherSuiteByName(name)
		if !found {
			return nil, fmt.Errorf("unknown cipher suite: %q", name)
		}
		out = append(out, cs.ID)
	}
	return out, nil
}

// isTLS13CipherSuite returns whether the suite only works with TLS 1.3.
func isTLS13CipherSuite(id uint16) bool {
	return id>>8 == 0x13
}

// cipherSuiteBits returns the symmetric key strength of the suite.
func cipherSuiteBits(name string) int {
	switch {
	case strings.Contains(name, "AES_128"):
		return 128
	case strings.Contains(name, "AES_256"):
		return 256
	case strings.Contains(name, "CHACHA20"):
		return 256
	case strings.Contains(name, "3DES"):
		return 112
	case strings.Contains(name, "RC4_128"):
		return 128
	default:
		return 0
	}
}

// isGREASE returns whether the value is a GREASE placeholder.
func isGREASE(v uint16) bool {
	return v&0x0f0f == 0x0a0a && v>>8 == v&0xff
}
