package tlsengine

//
// Engine flavor based on crypto/tls
//

import (
	"crypto/tls"
	"net"
)

// stdlibFlavor is the flavor using crypto/tls.
type stdlibFlavor struct {
	ctx *Context
}

var _ flavor = &stdlibFlavor{}

func (f *stdlibFlavor) name() string {
	return EngineStdlib
}

// cipherList returns the configured TLS 1.2 suites followed by all the
// TLS 1.3 suites, because crypto/tls always enables all of them.
func (f *stdlibFlavor) cipherList() []string {
	out := []string{}
	if f.ctx.minVersion < tls.VersionTLS13 {
		for _, id := range f.legacyCipherSuites() {
			out = append(out, tls.CipherSuiteName(id))
		}
	}
	if f.ctx.maxVersion >= tls.VersionTLS13 {
		for _, cs := range tls.CipherSuites() {
			if isTLS13CipherSuite(cs.ID) {
				out = append(out, cs.Name)
			}
		}
	}
	return out
}

// legacyCipherSuites returns the configured suites usable with TLS 1.2
// and below or, when none is configured, the library's secure suites.
func (f *stdlibFlavor) legacyCipherSuites() []uint16 {
	var out []uint16
	for _, id := range f.ctx.cipherSuites {
		if !isTLS13CipherSuite(id) {
			out = append(out, id)
		}
	}
	if len(f.ctx.cipherSuites) > 0 {
		return out
	}
	for _, cs := range tls.CipherSuites() {
		if !isTLS13CipherSuite(cs.ID) {
			out = append(out, cs.ID)
		}
	}
	return out
}

func (f *stdlibFlavor) canWriteEarlyData() bool {
	return false
}

func (f *stdlibFlavor) newSessionSlot() sessionSlot {
	return newTypedSlot[tls.ClientSessionState](EngineStdlib)
}

func (f *stdlibFlavor) newBackend(e *Engine, conn net.Conn) (backend, error) {
	settings := &f.ctx.settings
	config := &tls.Config{
		ClientSessionCache: e.sessions.(*typedSlot[tls.ClientSessionState]).cache,
		GetClientCertificate: func(cri *tls.CertificateRequestInfo) (*tls.Certificate, error) {
			return e.clientCertificate(cri.AcceptableCAs)
		},
		// #nosec G402 - we verify the chain in VerifyConnection
		InsecureSkipVerify:     true,
		KeyLogWriter:           e.keylog,
		MaxVersion:             f.ctx.maxVersion,
		MinVersion:             f.ctx.minVersion,
		ServerName:             e.serverName,
		SessionTicketsDisabled: settings.DisableSessionTickets,
		VerifyConnection: func(cs tls.ConnectionState) error {
			return e.verifyPeer(cs.PeerCertificates)
		},
	}
	// crypto/tls does not allow configuring the TLS 1.3 suites
	config.CipherSuites = f.legacyCipherSuites()
	return &stdlibBackend{tls.Client(conn, config)}, nil
}

// stdlibBackend is the backend using crypto/tls.
type stdlibBackend struct {
	*tls.Conn
}

func (b *stdlibBackend) connState() connState {
	state := b.ConnectionState()
	return connState{
		cipherSuite:      state.CipherSuite,
		didResume:        state.DidResume,
		ocspResponse:     state.OCSPResponse,
		peerCertificates: state.PeerCertificates,
		version:          state.Version,
	}
}
