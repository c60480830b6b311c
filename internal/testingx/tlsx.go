package testingx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/apex/log"
	"github.com/ooni/netem"
	"github.com/ooni/sslclient/internal/runtimex"
)

// TLSMITMProvider provides the certificates used by the test servers.
type TLSMITMProvider interface {
	// CACert returns the CA certificate used by the server, which
	// allows you to add to an existing [*x509.CertPool].
	CACert() *x509.Certificate

	// DefaultCertPool returns the default cert pool to use.
	DefaultCertPool() (*x509.CertPool, error)

	// ServerTLSConfig returns ready to use server TLS configuration.
	ServerTLSConfig() *tls.Config
}

// MustNewTLSMITMProviderNetem uses [github.com/ooni/netem] to implement [TLSMITMProvider].
func MustNewTLSMITMProviderNetem() TLSMITMProvider {
	return &netemTLSMITMProvider{runtimex.Try1(netem.NewTLSMITMConfig())}
}

type netemTLSMITMProvider struct {
	cfg *netem.TLSMITMConfig
}

// CACert implements TLSMITMProvider.
func (p *netemTLSMITMProvider) CACert() *x509.Certificate {
	return p.cfg.Cert
}

// DefaultCertPool implements TLSMITMProvider.
func (p *netemTLSMITMProvider) DefaultCertPool() (*x509.CertPool, error) {
	return p.cfg.CertPool()
}

// ServerTLSConfig implements TLSMITMProvider.
func (p *netemTLSMITMProvider) ServerTLSConfig() *tls.Config {
	return p.cfg.TLSConfig()
}

// TLSHandler handles TLS connections. A handler should first handle the TLS handshake
// in the GetCertificate method. If GetCertificate did not return an error, and the
// handler implements [TLSConnHandler], its HandleTLSConn method will be called after
// the handshake to handle the lifecycle of the TLS conn itself.
type TLSHandler interface {
	// GetCertificate handles the TLS handshake.
	GetCertificate(ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error)
}

// TLSConn is the interface assumed by an established TLS conn.
type TLSConn interface {
	ConnectionState() tls.ConnectionState
	net.Conn
}

// TLSConnHandler is the interface implemented by handlers that want to handle
// and manage the established TLS connection after the handshake.
type TLSConnHandler interface {
	HandleTLSConn(conn TLSConn)
}

// TLSServerOption customizes the server side TLS configuration.
type TLSServerOption func(config *tls.Config)

// TLSServerMaxVersion limits the highest protocol version the server accepts.
func TLSServerMaxVersion(version uint16) TLSServerOption {
	return func(config *tls.Config) {
		config.MaxVersion = version
	}
}

// TLSServerRequestClientCert makes the server request a client certificate
// advertising the subjects of the given CAs, without requiring one.
func TLSServerRequestClientCert(cas ...*x509.Certificate) TLSServerOption {
	return func(config *tls.Config) {
		pool := x509.NewCertPool()
		for _, ca := range cas {
			pool.AddCert(ca)
		}
		config.ClientAuth = tls.RequestClientCert
		config.ClientCAs = pool
	}
}

// TLSServerRequireClientCert is like TLSServerRequestClientCert but the
// handshake fails if the client does not send any certificate.
func TLSServerRequireClientCert(cas ...*x509.Certificate) TLSServerOption {
	return func(config *tls.Config) {
		TLSServerRequestClientCert(cas...)(config)
		config.ClientAuth = tls.RequireAnyClientCert
	}
}

// TLSServerSessionTicketKey makes all the connections accepted by the server
// use the same session ticket key, such that clients can resume sessions.
func TLSServerSessionTicketKey(key [32]byte) TLSServerOption {
	return func(config *tls.Config) {
		config.SessionTicketKey = key
	}
}

// TLSServer is a TLS server useful to implement test servers.
type TLSServer struct {
	// cancel unblocks background goroutines blocked on the context contolling their lifecycle.
	cancel context.CancelFunc

	// closeOnce provides "once" semantics when closing.
	closeOnce sync.Once

	// conns contains the connections we're currently serving.
	conns map[net.Conn]bool

	// endpoint is the endpoint where we're listening.
	endpoint string

	// handler contains the TLSHandler.
	handler TLSHandler

	// listener is the listening socket controller.
	listener net.Listener

	// mu protects conns.
	mu sync.Mutex

	// options contains the server options.
	options []TLSServerOption

	// serve runs the TLS protocol over an accepted conn.
	serve tlsServeFunc

	// wg waits until the background goroutines have finished running.
	wg sync.WaitGroup
}

// MustNewTLSServer is a simplified [MustNewTLSServerEx] that uses the stdlib and localhost.
func MustNewTLSServer(handler TLSHandler, options ...TLSServerOption) *TLSServer {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
	return MustNewTLSServerEx(addr, &TCPListenerStdlib{}, handler, options...)
}

// MustNewTLSServerEx creates and starts a new TLSServer that executes
// the given action during the TLS handshake.
func MustNewTLSServerEx(addr *net.TCPAddr, tcpListener TCPListener, handler TLSHandler, options ...TLSServerOption) *TLSServer {
	return mustStartTLSServer(addr, tcpListener, handler, (*TLSServer).serveStdlib, options...)
}

// tlsServeFunc runs the server side of the TLS protocol over a TCP conn.
type tlsServeFunc func(p *TLSServer, ctx context.Context, tcpConn net.Conn)

func mustStartTLSServer(addr *net.TCPAddr, tcpListener TCPListener,
	handler TLSHandler, serve tlsServeFunc, options ...TLSServerOption) *TLSServer {
	// create a listening socket
	listener := runtimex.Try1(tcpListener.ListenTCP("tcp", addr))

	// create context for interrupting goroutines blocked in the background
	ctx, cancel := context.WithCancel(context.Background())

	// create the server
	srv := &TLSServer{
		cancel:    cancel,
		closeOnce: sync.Once{},
		conns:     make(map[net.Conn]bool),
		endpoint:  listener.Addr().String(),
		handler:   handler,
		listener:  listener,
		options:   options,
		serve:     serve,
		wg:        sync.WaitGroup{},
	}

	// handle TCP connections
	srv.wg.Add(1)
	go srv.mainloop(ctx)

	return srv
}

// Endpoint returns the endpoint where the server is listening.
func (p *TLSServer) Endpoint() string {
	return p.endpoint
}

// Close closes this server as soon as possible.
func (p *TLSServer) Close() (err error) {
	p.closeOnce.Do(func() {
		err = p.listener.Close()
		p.cancel()
		p.mu.Lock()
		for conn := range p.conns {
			conn.Close()
		}
		p.conns = nil // stop tracking
		p.mu.Unlock()
		p.wg.Wait()
	})
	return
}

func (p *TLSServer) mainloop(ctx context.Context) {
	defer p.wg.Done()
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Warnf("TLSServer.mainloop: %s", err.Error())
			}
			return
		}
		if !p.track(conn) {
			conn.Close()
			return
		}

		// create a goroutine for connection, which is overkill in general
		// but reasonable for a server designed for testing
		p.wg.Add(1)
		go p.handle(ctx, conn)
	}
}

func (p *TLSServer) track(conn net.Conn) bool {
	defer p.mu.Unlock()
	p.mu.Lock()
	if p.conns == nil {
		return false
	}
	p.conns[conn] = true
	return true
}

func (p *TLSServer) untrack(conn net.Conn) {
	defer p.mu.Unlock()
	p.mu.Lock()
	delete(p.conns, conn)
}

func (p *TLSServer) handle(ctx context.Context, tcpConn net.Conn) {
	defer runtimex.CatchLogAndIgnorePanic(log.Log, "TLSServer.handle")
	defer p.wg.Done()
	defer p.untrack(tcpConn)

	// eventually close the TLS connection
	defer tcpConn.Close()

	p.serve(p, ctx, tcpConn)
}

func (p *TLSServer) serveStdlib(ctx context.Context, tcpConn net.Conn) {
	// create TLS configuration where the handler is responsible for continuing the handshake
	tlsConfig := &tls.Config{
		GetCertificate: func(chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
			return p.handler.GetCertificate(ctx, tcpConn, chi)
		},
	}
	for _, option := range p.options {
		option(tlsConfig)
	}

	// create TLS connection
	tlsConn := tls.Server(tcpConn, tlsConfig)

	// perform the TLS handshake
	if err := tlsConn.Handshake(); err != nil {
		return
	}

	// eventually close the connection
	defer tlsConn.Close()

	// optionally let the handler handle the connection
	if h, good := p.handler.(TLSConnHandler); good {
		h.HandleTLSConn(tlsConn)
	}
}

const (
	// TLSAlertInternalError is the alter sent on internal errors
	TLSAlertInternalError = byte(80)

	// TLSAlertUnrecognizedName is the alert sent when the name is not recognized
	TLSAlertUnrecognizedName = byte(112)
)

// TLSHandlerSendAlert sends the alert given as argument to the client.
func TLSHandlerSendAlert(alert byte) TLSHandler {
	return &tlsHandlerSendAlert{alert}
}

type tlsHandlerSendAlert struct {
	alert byte
}

// GetCertificate implements TLSHandler.
func (thx *tlsHandlerSendAlert) GetCertificate(
	ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	alertdata := []byte{
		21, // alert
		3,  // version[0]
		3,  // version[1]
		0,  // length[0]
		2,  // length[1]
		2,  // fatal
		thx.alert,
	}
	_, _ = tcpConn.Write(alertdata)
	_ = tcpConn.Close() // close connection to avoid the caller trying to send another alert
	return nil, errors.New("internal error")
}

// TLSHandlerEOF closes the connection during the handshake.
func TLSHandlerEOF() TLSHandler {
	return &tlsHandlerEOF{}
}

type tlsHandlerEOF struct{}

// GetCertificate implements TLSHandler.
func (*tlsHandlerEOF) GetCertificate(ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	tcpConn.Close() // close the TCP connection to force EOF during the handshake
	return nil, errors.New("internal error")
}

// TLSHandlerReset resets the connection.
func TLSHandlerReset() TLSHandler {
	return &tlsHandlerReset{}
}

type tlsHandlerReset struct{}

// GetCertificate implements TLSHandler.
func (*tlsHandlerReset) GetCertificate(ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	tcpMaybeResetNetConn(tcpConn)
	return nil, errors.New("internal error")
}

// TLSHandlerHandshakeAndWriteText returns a [TLSHandler] that attempts to
// complete the handshake and returns the given text to the caller.
func TLSHandlerHandshakeAndWriteText(mitm TLSMITMProvider, text []byte) TLSHandler {
	return &tlsHandlerHandshakeAndWriteText{mitm, text}
}

var _ TLSConnHandler = &tlsHandlerHandshakeAndWriteText{}

type tlsHandlerHandshakeAndWriteText struct {
	mitm TLSMITMProvider
	text []byte
}

// GetCertificate implements TLSHandler.
func (thx *tlsHandlerHandshakeAndWriteText) GetCertificate(ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return thx.mitm.ServerTLSConfig().GetCertificate(chi)
}

// HandleTLSConn implements TLSConnHandler.
func (thx *tlsHandlerHandshakeAndWriteText) HandleTLSConn(conn TLSConn) {
	_, _ = conn.Write(thx.text)
}

// TLSHandlerEcho returns a [TLSHandler] that completes the handshake and
// echoes the received application data until the client closes.
func TLSHandlerEcho(mitm TLSMITMProvider) TLSHandler {
	return &tlsHandlerEcho{mitm}
}

var _ TLSConnHandler = &tlsHandlerEcho{}

type tlsHandlerEcho struct {
	mitm TLSMITMProvider
}

// GetCertificate implements TLSHandler.
func (thx *tlsHandlerEcho) GetCertificate(ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return thx.mitm.ServerTLSConfig().GetCertificate(chi)
}

// HandleTLSConn implements TLSConnHandler.
func (thx *tlsHandlerEcho) HandleTLSConn(conn TLSConn) {
	_, _ = io.Copy(conn, conn)
}

// TLSHandlerWritePeerName returns a [TLSHandler] that completes the handshake
// and writes the common name of the client certificate, or "anonymous".
func TLSHandlerWritePeerName(mitm TLSMITMProvider) TLSHandler {
	return &tlsHandlerWritePeerName{mitm}
}

var _ TLSConnHandler = &tlsHandlerWritePeerName{}

type tlsHandlerWritePeerName struct {
	mitm TLSMITMProvider
}

// GetCertificate implements TLSHandler.
func (thx *tlsHandlerWritePeerName) GetCertificate(ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return thx.mitm.ServerTLSConfig().GetCertificate(chi)
}

// HandleTLSConn implements TLSConnHandler.
func (thx *tlsHandlerWritePeerName) HandleTLSConn(conn TLSConn) {
	name := "anonymous"
	if certs := conn.ConnectionState().PeerCertificates; len(certs) > 0 {
		name = certs[0].Subject.CommonName
	}
	_, _ = conn.Write([]byte(name))
}
