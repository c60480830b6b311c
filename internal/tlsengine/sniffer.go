package tlsengine

//
// Passive handshake sniffer
//

import (
	"github.com/ooni/sslclient/internal/sigalgs"
	"golang.org/x/crypto/cryptobyte"
)

// Record content types and handshake message types.
const (
	recordTypeChangeCipherSpec = 20
	recordTypeHandshake        = 22

	handshakeTypeServerHello       = 2
	handshakeTypeServerKeyExchange = 12

	extensionSupportedVersions = 43

	curveTypeNamedCurve = 3

	versionTLS12 = 0x0303
)

// sniffer observes the ciphertext the server sends until the handshake
// becomes encrypted and extracts the facts the TLS libraries do not
// expose: the session ID and the algorithm the server used to sign the
// key exchange parameters.
type sniffer struct {
	// records contains the bytes of incomplete records.
	records []byte

	// messages contains the bytes of incomplete handshake messages.
	messages []byte

	// stopped indicates we cannot see plaintext handshake messages anymore.
	stopped bool

	// version is the version selected by the ServerHello.
	version uint16

	// sessionID is the session ID in the ServerHello.
	sessionID []byte

	// signature is the signature scheme used by ServerKeyExchange.
	signature sigalgs.Scheme

	// hasSignature indicates whether we have seen the signature scheme.
	hasSignature bool
}

// feed observes data received from the server.
func (s *sniffer) feed(data []byte) {
	if s.stopped {
		return
	}
	s.records = append(s.records, data...)
	for !s.stopped {
		input := cryptobyte.String(s.records)
		var (
			contentType uint8
			version     uint16
			payload     cryptobyte.String
		)
		if !input.ReadUint8(&contentType) || !input.ReadUint16(&version) ||
			!input.ReadUint16LengthPrefixed(&payload) {
			return // need more data
		}
		s.records = []byte(input)
		switch contentType {
		case recordTypeChangeCipherSpec:
			s.stop()
		case recordTypeHandshake:
			s.messages = append(s.messages, payload...)
			s.parseMessages()
		}
	}
}

func (s *sniffer) stop() {
	s.stopped = true
	s.records, s.messages = nil, nil
}

func (s *sniffer) parseMessages() {
	for !s.stopped {
		input := cryptobyte.String(s.messages)
		var (
			msgType uint8
			body    cryptobyte.String
		)
		if !input.ReadUint8(&msgType) || !input.ReadUint24LengthPrefixed(&body) {
			return // need more data
		}
		s.messages = []byte(input)
		switch msgType {
		case handshakeTypeServerHello:
			s.parseServerHello(body)
		case handshakeTypeServerKeyExchange:
			s.parseServerKeyExchange(body)
		}
	}
}

func (s *sniffer) parseServerHello(body cryptobyte.String) {
	var (
		version   uint16
		random    []byte
		sessionID cryptobyte.String
	)
	if !body.ReadUint16(&version) || !body.ReadBytes(&random, 32) ||
		!body.ReadUint8LengthPrefixed(&sessionID) || !body.Skip(3) {
		s.stop()
		return
	}
	s.version = version
	s.sessionID = append([]byte{}, sessionID...)
	var extensions cryptobyte.String
	if body.Empty() || !body.ReadUint16LengthPrefixed(&extensions) {
		return
	}
	for !extensions.Empty() {
		var (
			extType uint16
			extData cryptobyte.String
		)
		if !extensions.ReadUint16(&extType) || !extensions.ReadUint16LengthPrefixed(&extData) {
			return
		}
		if extType == extensionSupportedVersions {
			// everything after the ServerHello is encrypted with TLS 1.3
			var selected uint16
			if extData.ReadUint16(&selected) {
				s.version = selected
			}
			s.stop()
			return
		}
	}
}

func (s *sniffer) parseServerKeyExchange(body cryptobyte.String) {
	if s.version < versionTLS12 {
		return // no signature algorithm on the wire
	}
	if scheme, ok := parseECDHEParamsSignature(body); ok {
		s.signature, s.hasSignature = scheme, true
		return
	}
	if scheme, ok := parseDHEParamsSignature(body); ok {
		s.signature, s.hasSignature = scheme, true
	}
}

func parseECDHEParamsSignature(body cryptobyte.String) (sigalgs.Scheme, bool) {
	var (
		curveType uint8
		curve     uint16
		point     cryptobyte.String
		scheme    uint16
		signature cryptobyte.String
	)
	if !body.ReadUint8(&curveType) || curveType != curveTypeNamedCurve ||
		!body.ReadUint16(&curve) || !body.ReadUint8LengthPrefixed(&point) ||
		!body.ReadUint16(&scheme) || !body.ReadUint16LengthPrefixed(&signature) ||
		!body.Empty() {
		return 0, false
	}
	return sigalgs.Scheme(scheme), true
}

func parseDHEParamsSignature(body cryptobyte.String) (sigalgs.Scheme, bool) {
	var (
		p, g, ys  cryptobyte.String
		scheme    uint16
		signature cryptobyte.String
	)
	if !body.ReadUint16LengthPrefixed(&p) || !body.ReadUint16LengthPrefixed(&g) ||
		!body.ReadUint16LengthPrefixed(&ys) || !body.ReadUint16(&scheme) ||
		!body.ReadUint16LengthPrefixed(&signature) || !body.Empty() {
		return 0, false
	}
	return sigalgs.Scheme(scheme), true
}

// peerSignature returns the digest and the signature type used by the
// server to sign the key exchange parameters, when known.
func (s *sniffer) peerSignature() (digest, typ string, ok bool) {
	if !s.hasSignature {
		return "", "", false
	}
	return sigalgs.Describe(s.signature)
}

// serverSessionID returns the session ID sent by the server or nil.
func (s *sniffer) serverSessionID() []byte {
	return s.sessionID
}
