package tlsengine

//
// Engine flavor based on utls
//

import (
	"crypto/tls"
	"fmt"
	"net"

	utls "github.com/refraction-networking/utls"
)

// clientHelloIDs maps the names of the ClientHello we can parrot to
// the corresponding utls IDs.
var clientHelloIDs = map[string]utls.ClientHelloID{
	"chrome":  utls.HelloChrome_Auto,
	"edge":    utls.HelloEdge_Auto,
	"firefox": utls.HelloFirefox_Auto,
	"ios":     utls.HelloIOS_Auto,
	"safari":  utls.HelloSafari_Auto,
}

// defaultClientHello is the ClientHello we parrot by default.
const defaultClientHello = "chrome"

// utlsFlavor is the flavor using utls.
type utlsFlavor struct {
	ctx *Context
	id  utls.ClientHelloID
}

var _ flavor = &utlsFlavor{}

func newUTLSFlavor(ctx *Context, clientHello string) (*utlsFlavor, error) {
	if clientHello == "" {
		clientHello = defaultClientHello
	}
	id, found := clientHelloIDs[clientHello]
	if !found {
		return nil, fmt.Errorf("tlsengine: unknown ClientHello: %q", clientHello)
	}
	if _, err := utls.UTLSIdToSpec(id); err != nil {
		return nil, fmt.Errorf("tlsengine: cannot parrot %q: %w", clientHello, err)
	}
	return &utlsFlavor{ctx: ctx, id: id}, nil
}

func (f *utlsFlavor) name() string {
	return EngineUTLS
}

func (f *utlsFlavor) cipherList() []string {
	spec, err := utls.UTLSIdToSpec(f.id)
	if err != nil {
		return []string{}
	}
	ids := spec.CipherSuites
	if len(f.ctx.cipherSuites) > 0 {
		ids = mergeCipherSuites(ids, f.ctx.cipherSuites)
	}
	out := []string{}
	for _, id := range ids {
		if !isGREASE(id) {
			out = append(out, tls.CipherSuiteName(id))
		}
	}
	return out
}

func (f *utlsFlavor) canWriteEarlyData() bool {
	return false
}

func (f *utlsFlavor) newSessionSlot() sessionSlot {
	return newTypedSlot[utls.ClientSessionState](EngineUTLS)
}

func (f *utlsFlavor) newBackend(e *Engine, conn net.Conn) (backend, error) {
	settings := &f.ctx.settings
	config := &utls.Config{
		ClientSessionCache: e.sessions.(*typedSlot[utls.ClientSessionState]).cache,
		GetClientCertificate: func(cri *utls.CertificateRequestInfo) (*utls.Certificate, error) {
			cert, err := e.clientCertificate(cri.AcceptableCAs)
			if err != nil {
				return nil, err
			}
			return &utls.Certificate{
				Certificate: cert.Certificate,
				Leaf:        cert.Leaf,
				OCSPStaple:  cert.OCSPStaple,
				PrivateKey:  cert.PrivateKey,
			}, nil
		},
		// #nosec G402 - we verify the chain in VerifyConnection
		InsecureSkipVerify:     true,
		KeyLogWriter:           e.keylog,
		MaxVersion:             f.ctx.maxVersion,
		MinVersion:             f.ctx.minVersion,
		ServerName:             e.serverName,
		SessionTicketsDisabled: settings.DisableSessionTickets,
		VerifyConnection: func(cs utls.ConnectionState) error {
			return e.verifyPeer(cs.PeerCertificates)
		},
	}
	spec, err := utls.UTLSIdToSpec(f.id)
	if err != nil {
		return nil, err
	}
	f.customize(&spec)
	uconn := utls.UClient(conn, config, utls.HelloCustom)
	if err := uconn.ApplyPreset(&spec); err != nil {
		return nil, err
	}
	return &utlsBackend{uconn}, nil
}

// customize rewrites the parrot's ClientHello to honour our settings.
func (f *utlsFlavor) customize(spec *utls.ClientHelloSpec) {
	settings := &f.ctx.settings
	spec.TLSVersMin, spec.TLSVersMax = f.ctx.minVersion, f.ctx.maxVersion
	if len(f.ctx.cipherSuites) > 0 {
		spec.CipherSuites = mergeCipherSuites(spec.CipherSuites, f.ctx.cipherSuites)
	}
	var extensions []utls.TLSExtension
	for _, ext := range spec.Extensions {
		switch x := ext.(type) {
		case *utls.SupportedVersionsExtension:
			x.Versions = rewriteSupportedVersions(x.Versions, f.ctx.minVersion, f.ctx.maxVersion)
		case *utls.SignatureAlgorithmsExtension:
			if len(settings.SignatureAlgorithms) > 0 {
				x.SupportedSignatureAlgorithms = nil
				for _, scheme := range settings.SignatureAlgorithms {
					x.SupportedSignatureAlgorithms = append(
						x.SupportedSignatureAlgorithms, utls.SignatureScheme(scheme))
				}
			}
		case *utls.SessionTicketExtension:
			if settings.DisableSessionTickets {
				continue
			}
		}
		extensions = append(extensions, ext)
	}
	spec.Extensions = extensions
}

// mergeCipherSuites returns the configured suites preceded by the parrot's
// GREASE value, if any. When we did not configure any TLS 1.3 suite we keep
// the parrot's, otherwise TLS 1.3 could not work.
func mergeCipherSuites(parrot, configured []uint16) []uint16 {
	var out []uint16
	hasTLS13 := false
	for _, id := range configured {
		hasTLS13 = hasTLS13 || isTLS13CipherSuite(id)
	}
	for _, id := range parrot {
		if isGREASE(id) || (!hasTLS13 && isTLS13CipherSuite(id)) {
			out = append(out, id)
		}
	}
	return append(out, configured...)
}

// rewriteSupportedVersions keeps the GREASE value, if any, and then lists
// the versions between max and min in decreasing order.
func rewriteSupportedVersions(versions []uint16, minVersion, maxVersion uint16) []uint16 {
	var out []uint16
	for _, v := range versions {
		if isGREASE(v) {
			out = append(out, v)
		}
	}
	for v := maxVersion; v >= minVersion; v-- {
		out = append(out, v)
	}
	return out
}

// utlsBackend is the backend using utls.
type utlsBackend struct {
	*utls.UConn
}

func (b *utlsBackend) connState() connState {
	state := b.ConnectionState()
	return connState{
		cipherSuite:      state.CipherSuite,
		didResume:        state.DidResume,
		ocspResponse:     state.OCSPResponse,
		peerCertificates: state.PeerCertificates,
		version:          state.Version,
	}
}
