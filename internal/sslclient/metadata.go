package sslclient

//
// Session metadata
//

import (
	"crypto/x509"

	"github.com/ooni/sslclient/internal/model"
	"github.com/ooni/sslclient/internal/tlsengine"
)

// requireCompleted fails unless the handshake completed and the
// session has not been shut down or closed.
func (c *Client) requireCompleted() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.state != StateCompleted {
		return ErrHandshakeNotCompleted
	}
	return nil
}

// PeerCertificate returns the peer leaf certificate or nil when the
// peer did not send any certificate.
func (c *Client) PeerCertificate() (*x509.Certificate, error) {
	chain, err := c.PeerCertChain()
	if err != nil || len(chain) <= 0 {
		return nil, err
	}
	return chain[0], nil
}

// PeerCertChain returns the certificate chain sent by the peer, leaf first.
func (c *Client) PeerCertChain() ([]*x509.Certificate, error) {
	if err := c.requireCompleted(); err != nil {
		return nil, err
	}
	return c.engine.PeerCertificates(), nil
}

func (c *Client) cipherSuite() (model.CipherSuite, error) {
	if err := c.requireCompleted(); err != nil {
		return model.CipherSuite{}, err
	}
	suite, found := c.engine.CipherSuite()
	if !found {
		return model.CipherSuite{}, ErrHandshakeNotCompleted
	}
	return suite, nil
}

// CurrentCipherName returns the IANA name of the negotiated cipher suite.
func (c *Client) CurrentCipherName() (string, error) {
	suite, err := c.cipherSuite()
	return suite.Name, err
}

// CurrentCipherBits returns the symmetric key strength of the negotiated cipher suite.
func (c *Client) CurrentCipherBits() (int, error) {
	suite, err := c.cipherSuite()
	return suite.Bits, err
}

// CurrentCipherProtocolID returns the two bytes identifying the negotiated
// cipher suite on the wire (e.g., {0xC0, 0x2F}).
func (c *Client) CurrentCipherProtocolID() ([2]byte, error) {
	suite, err := c.cipherSuite()
	if err != nil {
		return [2]byte{}, err
	}
	return [2]byte{byte(suite.ID >> 8), byte(suite.ID)}, nil
}

// SSLVersion returns the negotiated protocol version. A version we
// don't know is returned as model.VersionUnknown.
func (c *Client) SSLVersion() (model.Version, error) {
	if err := c.requireCompleted(); err != nil {
		return model.VersionUnknown, err
	}
	return model.VersionFromCode(c.engine.VersionCode()), nil
}

// CertificateChainVerifyResult returns the result code of the peer
// certificate chain verification, where zero means success, along
// with its description.
func (c *Client) CertificateChainVerifyResult() (int, string, error) {
	if err := c.requireCompleted(); err != nil {
		return 0, "", err
	}
	code := c.engine.VerifyResult()
	return code, tlsengine.VerifyResultString(code), nil
}

// Session returns the session you can use with SetSession to resume
// it using another client. The result may be nil.
func (c *Client) Session() (model.Session, error) {
	if err := c.requireCompleted(); err != nil {
		return nil, err
	}
	return c.engine.Session(), nil
}

// ClientCAList returns the names of the certificate authorities the
// peer advertised when requesting a client certificate.
func (c *Client) ClientCAList() ([]string, error) {
	if err := c.requireCompleted(); err != nil {
		return nil, err
	}
	return c.engine.ClientCAList(), nil
}

// OCSPResponse returns the OCSP response stapled by the peer or nil.
func (c *Client) OCSPResponse() (*OCSPResponse, error) {
	if err := c.requireCompleted(); err != nil {
		return nil, err
	}
	return newOCSPResponse(c.engine.OCSPResponse()), nil
}

// PeerSignatureDigest returns the short name of the digest the peer used
// to sign the handshake (e.g., "SHA256"). This method returns an error
// wrapping ErrPeerSignatureUnavailable when we don't know it.
func (c *Client) PeerSignatureDigest() (string, error) {
	digest, _, err := c.peerSignature()
	return digest, err
}

// PeerSignatureType returns the short name of the signature algorithm the
// peer used to sign the handshake (e.g., "RSA-PSS").
func (c *Client) PeerSignatureType() (string, error) {
	_, typ, err := c.peerSignature()
	return typ, err
}

func (c *Client) peerSignature() (string, string, error) {
	if err := c.requireCompleted(); err != nil {
		return "", "", err
	}
	digest, typ, ok := c.engine.PeerSignature()
	if !ok {
		return "", "", ErrPeerSignatureUnavailable
	}
	return digest, typ, nil
}

// SessionMetadata is a snapshot of the session metadata.
type SessionMetadata struct {
	// CipherBits is the symmetric key strength.
	CipherBits int

	// CipherName is the IANA name of the cipher suite.
	CipherName string

	// CipherProtocolID identifies the cipher suite on the wire.
	CipherProtocolID [2]byte

	ClientCAList []string

	EarlyDataStatus model.EarlyDataStatus

	// OCSPResponse is the stapled OCSP response or nil.
	OCSPResponse *OCSPResponse

	// PeerCertChain is the peer chain, leaf first.
	PeerCertChain []*x509.Certificate

	// PeerSignatureDigest and PeerSignatureType are empty
	// when we don't know the peer signature algorithm.
	PeerSignatureDigest string
	PeerSignatureType   string

	// Session is the resumable session or nil.
	Session model.Session

	// VerifyResult is the verification result code.
	VerifyResult int

	// VerifyResultString describes VerifyResult.
	VerifyResultString string

	// Version is the negotiated protocol version.
	Version model.Version
}

// PeerCertificate returns the peer leaf certificate or nil.
func (m *SessionMetadata) PeerCertificate() *x509.Certificate {
	if len(m.PeerCertChain) <= 0 {
		return nil
	}
	return m.PeerCertChain[0]
}

// Metadata returns a snapshot of the session metadata.
func (c *Client) Metadata() (*SessionMetadata, error) {
	suite, err := c.cipherSuite()
	if err != nil {
		return nil, err
	}
	code := c.engine.VerifyResult()
	digest, typ, _ := c.engine.PeerSignature()
	return &SessionMetadata{
		CipherBits:          suite.Bits,
		CipherName:          suite.Name,
		CipherProtocolID:    [2]byte{byte(suite.ID >> 8), byte(suite.ID)},
		ClientCAList:        c.engine.ClientCAList(),
		EarlyDataStatus:     c.engine.EarlyDataStatus(),
		OCSPResponse:        newOCSPResponse(c.engine.OCSPResponse()),
		PeerCertChain:       c.engine.PeerCertificates(),
		PeerSignatureDigest: digest,
		PeerSignatureType:   typ,
		Session:             c.engine.Session(),
		VerifyResult:        code,
		VerifyResultString:  tlsengine.VerifyResultString(code),
		Version:             model.VersionFromCode(c.engine.VersionCode()),
	}, nil
}
