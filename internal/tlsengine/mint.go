package tlsengine

//
// Engine flavor based on mint
//

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/bifurcation/mint"
)

// mintCipherSuites maps the TLS 1.3 suites mint implements.
var mintCipherSuites = map[uint16]mint.CipherSuite{
	tls.TLS_AES_128_GCM_SHA256: mint.TLS_AES_128_GCM_SHA256,
	tls.TLS_AES_256_GCM_SHA384: mint.TLS_AES_256_GCM_SHA384,
}

// mintDefaultCipherSuites is the order in which we offer mint suites.
var mintDefaultCipherSuites = []uint16{
	tls.TLS_AES_128_GCM_SHA256,
	tls.TLS_AES_256_GCM_SHA384,
}

// mintFlavor is the flavor using mint.
type mintFlavor struct {
	ctx    *Context
	suites []uint16
}

var _ flavor = &mintFlavor{}

func newMintFlavor(ctx *Context) (*mintFlavor, error) {
	if ctx.minVersion != tls.VersionTLS13 {
		return nil, errors.New("tlsengine: the mint engine only supports TLSv1_3")
	}
	if len(ctx.settings.SignatureAlgorithms) > 0 {
		return nil, errors.New("tlsengine: the mint engine cannot use custom signature algorithms")
	}
	if ctx.settings.ClientHello != "" {
		return nil, errors.New("tlsengine: the mint engine cannot parrot a ClientHello")
	}
	suites := mintDefaultCipherSuites
	if len(ctx.cipherSuites) > 0 {
		suites = ctx.cipherSuites
	}
	for _, id := range suites {
		if _, found := mintCipherSuites[id]; !found {
			return nil, fmt.Errorf("tlsengine: the mint engine does not implement %s", tls.CipherSuiteName(id))
		}
	}
	return &mintFlavor{ctx: ctx, suites: suites}, nil
}

func (f *mintFlavor) name() string {
	return EngineMint
}

func (f *mintFlavor) cipherList() []string {
	out := []string{}
	for _, id := range f.suites {
		out = append(out, tls.CipherSuiteName(id))
	}
	return out
}

func (f *mintFlavor) canWriteEarlyData() bool {
	return true
}

func (f *mintFlavor) newSessionSlot() sessionSlot {
	return newTypedSlot[mint.PreSharedKey](EngineMint)
}

func (f *mintFlavor) newBackend(e *Engine, conn net.Conn) (backend, error) {
	// mint refuses a client config without a server name
	if e.serverName == "" {
		return nil, errors.New("tlsengine: the mint engine needs a server name")
	}
	config := &mint.Config{
		AllowEarlyData: e.earlyData,
		// #nosec G402 - we verify the chain once the handshake is done
		InsecureSkipVerify: true,
		NonBlocking:        true,
		PSKs: &mintPSKCache{
			cache:    e.sessions.(*typedSlot[mint.PreSharedKey]).cache,
			readOnly: f.ctx.settings.DisableSessionTickets,
		},
		ServerName: e.serverName,
	}
	for _, id := range f.suites {
		config.CipherSuites = append(config.CipherSuites, mintCipherSuites[id])
	}
	if cert := f.ctx.settings.ClientCertificate; cert != nil {
		mcert, err := newMintCertificate(cert)
		if err != nil {
			return nil, err
		}
		config.Certificates = []*mint.Certificate{mcert}
	}
	return &mintBackend{conn: mint.Client(conn, config), engine: e}, nil
}

// newMintCertificate converts a crypto/tls identity to a mint identity.
func newMintCertificate(cert *tls.Certificate) (*mint.Certificate, error) {
	signer, good := cert.PrivateKey.(crypto.Signer)
	if !good {
		return nil, errors.New("tlsengine: the mint engine needs a private key implementing crypto.Signer")
	}
	out := &mint.Certificate{PrivateKey: signer}
	for _, der := range cert.Certificate {
		c, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("tlsengine: mint: %w", err)
		}
		out.Chain = append(out.Chain, c)
	}
	return out, nil
}

// mintPSKCache adapts our session slot to mint's PSK cache. Like slotCache,
// it holds a single PSK regardless of the cache key.
type mintPSKCache struct {
	cache    *slotCache[mint.PreSharedKey]
	readOnly bool
}

var _ mint.PreSharedKeyCache = &mintPSKCache{}

func (c *mintPSKCache) Get(key string) (mint.PreSharedKey, bool) {
	psk, found := c.cache.Get(key)
	if !found {
		return mint.PreSharedKey{}, false
	}
	return *psk, true
}

func (c *mintPSKCache) Put(key string, psk mint.PreSharedKey) {
	if !c.readOnly {
		c.cache.Put(key, &psk)
	}
}

func (c *mintPSKCache) Size() int {
	if c.cache.load() != nil {
		return 1
	}
	return 0
}

// mintBackend is the backend using mint.
type mintBackend struct {
	conn    *mint.Conn
	engine  *Engine
	started bool
}

// start sends the ClientHello. With a non-blocking config, the first call
// to Handshake only prepares and sends the ClientHello.
func (b *mintBackend) start() error {
	if b.started {
		return nil
	}
	b.started = true
	return mintError(b.conn.Handshake())
}

func (b *mintBackend) Handshake() error {
	if err := b.start(); err != nil {
		return err
	}
	for b.conn.ConnectionState().HandshakeState != mint.StateClientConnected {
		if err := mintError(b.conn.Handshake()); err != nil {
			return err
		}
	}
	state := b.conn.ConnectionState()
	if state.UsingPSK && len(state.PeerCertificates) <= 0 {
		return nil // the server authenticated when we got the PSK
	}
	return b.engine.verifyPeer(state.PeerCertificates)
}

func (b *mintBackend) writeEarlyData(data []byte) error {
	if err := b.start(); err != nil {
		return err
	}
	_, err := b.conn.Write(data)
	return err
}

func (b *mintBackend) earlyDataAccepted() bool {
	return b.conn.ConnectionState().UsingEarlyData
}

func (b *mintBackend) Read(p []byte) (int, error) {
	count, err := b.conn.Read(p)
	if alert, good := err.(mint.Alert); good {
		err = mintError(alert)
	}
	return count, err
}

func (b *mintBackend) Write(p []byte) (int, error) {
	return b.conn.Write(p)
}

func (b *mintBackend) Close() error {
	return b.conn.Close()
}

func (b *mintBackend) connState() connState {
	state := b.conn.ConnectionState()
	return connState{
		cipherSuite:      uint16(state.CipherSuite.Suite),
		didResume:        state.UsingPSK,
		peerCertificates: state.PeerCertificates,
		version:          tls.VersionTLS13,
	}
}

// mintError maps a mint alert to an error.
func mintError(alert mint.Alert) error {
	switch alert {
	case mint.AlertNoAlert, mint.AlertStatelessRetry, mint.AlertWouldBlock:
		return nil
	case mint.AlertCloseNotify:
		return io.EOF
	default:
		return fmt.Errorf("tlsengine: mint: %w", alert)
	}
}
