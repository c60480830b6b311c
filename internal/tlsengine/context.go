package tlsengine

//
// Context: the immutable settings shared by engines
//

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/ooni/sslclient/internal/bridge"
	"github.com/ooni/sslclient/internal/model"
	"github.com/ooni/sslclient/internal/sigalgs"
)

// Names of the engines we support.
const (
	// EngineStdlib is the engine based on crypto/tls.
	EngineStdlib = "stdlib"

	// EngineUTLS is the engine based on github.com/refraction-networking/utls.
	EngineUTLS = "utls"

	// EngineMint is the TLS 1.3 only engine based on github.com/bifurcation/mint,
	// which is the only engine that can send early data.
	EngineMint = "mint"
)

// Settings contains the settings for creating a [*Context].
type Settings struct {
	// Version selects the protocol version to negotiate.
	Version model.Version

	// VerifyMode is the peer certificate verification mode.
	VerifyMode model.VerifyMode

	// TrustAnchors contains the trust anchors. When nil, we
	// use the system trust anchors.
	TrustAnchors *x509.CertPool

	// ClientCertificate is the OPTIONAL client identity.
	ClientCertificate *tls.Certificate

	// RefuseClientAuth causes the engine to continue without a client
	// certificate when the peer requests one. It's an error to set this
	// field along with ClientCertificate.
	RefuseClientAuth bool

	// SignatureAlgorithms contains the OPTIONAL signature algorithms to
	// advertise. Only the utls engine can honour this setting.
	SignatureAlgorithms []sigalgs.Scheme

	// CipherSuites contains the OPTIONAL IANA names of the cipher suites
	// to enable. When empty, we use the engine defaults.
	CipherSuites []string

	// Engine is the OPTIONAL engine name. When empty, we use [EngineUTLS]
	// if SignatureAlgorithms is not empty and [EngineStdlib] otherwise.
	Engine string

	// ClientHello is the OPTIONAL name of the ClientHello to parrot
	// with the utls engine (default: "chrome").
	ClientHello string

	// DisableSessionTickets disables stateless session resumption.
	DisableSessionTickets bool
}

// Context is the immutable, validated configuration from which we create
// engines. Because settings are validated and applied here, a setting
// cannot change after an engine has been created.
type Context struct {
	cipherSuites []uint16
	flavor       flavor
	maxVersion   uint16
	minVersion   uint16
	settings     Settings
}

// ErrUnsupportedVersion indicates that no engine supports the version.
var ErrUnsupportedVersion = errors.New("tlsengine: unsupported protocol version")

// NewContext validates the settings and creates a new [*Context].
func NewContext(settings *Settings) (*Context, error) {
	ctx := &Context{settings: *settings}
	if err := ctx.applyVersion(settings.Version); err != nil {
		return nil, err
	}
	if !settings.VerifyMode.Valid() {
		return nil, fmt.Errorf("tlsengine: invalid verify mode: %d", settings.VerifyMode)
	}
	if settings.ClientCertificate != nil && settings.RefuseClientAuth {
		return nil, errors.New("tlsengine: cannot both use a client certificate and refuse client authentication")
	}
	if settings.ClientCertificate != nil && len(settings.ClientCertificate.Certificate) <= 0 {
		return nil, errors.New("tlsengine: client certificate without certificates")
	}
	engine := settings.Engine
	if engine == "" {
		engine = EngineStdlib
		if len(settings.SignatureAlgorithms) > 0 || settings.ClientHello != "" {
			engine = EngineUTLS
		}
	}
	suites, err := parseCipherSuites(settings.CipherSuites)
	if err != nil {
		return nil, fmt.Errorf("tlsengine: %w", err)
	}
	ctx.cipherSuites = suites
	switch engine {
	case EngineStdlib:
		if len(settings.SignatureAlgorithms) > 0 {
			return nil, errors.New("tlsengine: the stdlib engine cannot use custom signature algorithms")
		}
		if settings.ClientHello != "" {
			return nil, errors.New("tlsengine: the stdlib engine cannot parrot a ClientHello")
		}
		flavor := &stdlibFlavor{ctx}
		if len(suites) > 0 && len(flavor.legacyCipherSuites()) <= 0 && ctx.minVersion < tls.VersionTLS13 {
			return nil, errors.New("tlsengine: the stdlib engine needs a TLS 1.2 cipher suite unless the version is TLSv1_3")
		}
		ctx.flavor = flavor
	case EngineUTLS:
		flavor, err := newUTLSFlavor(ctx, settings.ClientHello)
		if err != nil {
			return nil, err
		}
		ctx.flavor = flavor
	case EngineMint:
		flavor, err := newMintFlavor(ctx)
		if err != nil {
			return nil, err
		}
		ctx.flavor = flavor
	default:
		return nil, fmt.Errorf("tlsengine: unknown engine: %q", engine)
	}
	return ctx, nil
}

// applyVersion maps the version selector to version bounds.
func (c *Context) applyVersion(v model.Version) error {
	switch v {
	case model.VersionSSLv23:
		c.minVersion, c.maxVersion = tls.VersionTLS10, tls.VersionTLS13
	case model.VersionTLSv1:
		c.minVersion, c.maxVersion = tls.VersionTLS10, tls.VersionTLS10
	case model.VersionTLSv1_1:
		c.minVersion, c.maxVersion = tls.VersionTLS11, tls.VersionTLS11
	case model.VersionTLSv1_2:
		c.minVersion, c.maxVersion = tls.VersionTLS12, tls.VersionTLS12
	case model.VersionTLSv1_3:
		c.minVersion, c.maxVersion = tls.VersionTLS13, tls.VersionTLS13
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}
	return nil
}

// EngineName returns the name of the engine this context creates.
func (c *Context) EngineName() string {
	return c.flavor.name()
}

// CipherList returns the names of the cipher suites the engine offers,
// which may include suites the library does not allow to disable.
func (c *Context) CipherList() []string {
	return c.flavor.cipherList()
}

// NewEngine creates a new [*Engine] in the client role bound to a fresh bridge.
func (c *Context) NewEngine() *Engine {
	br := bridge.New()
	return &Engine{
		br:       br,
		ctx:      c,
		keylog:   &keyLogCapture{},
		sessions: c.flavor.newSessionSlot(),
		sniff:    &sniffer{},
		w:        newWorker(br),
	}
}
