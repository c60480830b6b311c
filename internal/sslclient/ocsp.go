package sslclient

import (
	"crypto/x509"

	"golang.org/x/crypto/ocsp"
)

// OCSPResponse is an OCSP response stapled by the peer.
type OCSPResponse struct {
	// Raw is the DER encoded response.
	Raw []byte
}

func newOCSPResponse(raw []byte) *OCSPResponse {
	if len(raw) <= 0 {
		return nil
	}
	return &OCSPResponse{Raw: append([]byte{}, raw...)}
}

// Parse parses the response and, when issuer is not nil, verifies
// the response signature using the issuer certificate.
func (r *OCSPResponse) Parse(issuer *x509.Certificate) (*ocsp.Response, error) {
	return ocsp.ParseResponse(r.Raw, issuer)
}
