package tlsengine

//
// Engine: the buffer-oriented TLS engine
//

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ooni/sslclient/internal/bridge"
	"github.com/ooni/sslclient/internal/model"
)

// errClientCertificateRequested is the error returned by our client
// certificate callback to interrupt the handshake.
var errClientCertificateRequested = errors.New("tlsengine: peer requested a client certificate")

// ErrEngineClosed indicates that the engine has been shut down or freed.
var ErrEngineClosed = errors.New("tlsengine: engine closed")

// ErrHandshakeNotComplete indicates the handshake did not complete yet.
var ErrHandshakeNotComplete = errors.New("tlsengine: handshake not complete")

// readBufferSize is the size of the buffer used for reading cleartext.
const readBufferSize = 1 << 14

// connState is the engine agnostic snapshot of the connection state.
type connState struct {
	cipherSuite      uint16
	didResume        bool
	ocspResponse     []byte
	peerCertificates []*x509.Certificate
	version          uint16
}

// backend is the blocking TLS conn used by an engine.
type backend interface {
	Handshake() error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	connState() connState
}

// earlyDataBackend is a backend that can send early data.
type earlyDataBackend interface {
	// writeEarlyData sends the ClientHello, if needed, and then turns
	// data into early data records without blocking.
	writeEarlyData(data []byte) error

	// earlyDataAccepted returns whether the server accepted early data.
	earlyDataAccepted() bool
}

// flavor abstracts over the TLS libraries we use.
type flavor interface {
	// name returns the engine name.
	name() string

	// cipherList returns the names of the cipher suites we offer.
	cipherList() []string

	// canWriteEarlyData returns whether the engine can send early data.
	canWriteEarlyData() bool

	// newSessionSlot creates the per-engine session storage.
	newSessionSlot() sessionSlot

	// newBackend creates the backend conn for the given engine.
	newBackend(e *Engine, conn net.Conn) (backend, error)
}

// sessionSlot is the per-engine session storage.
type sessionSlot interface {
	// session wraps the cached session, if any, into a [model.Session].
	session(masterKey []byte) model.Session

	// install installs a session and returns its master key.
	install(value model.Session) ([]byte, error)
}

// typedSlot implements sessionSlot for a given session state type.
type typedSlot[S any] struct {
	cache  *slotCache[S]
	engine string
}

func newTypedSlot[S any](engine string) *typedSlot[S] {
	return &typedSlot[S]{cache: &slotCache[S]{}, engine: engine}
}

func (ts *typedSlot[S]) session(masterKey []byte) model.Session {
	state := ts.cache.load()
	if state == nil {
		return nil
	}
	return &session[S]{engine: ts.engine, masterKey: masterKey, state: state}
}

func (ts *typedSlot[S]) install(value model.Session) ([]byte, error) {
	sess, err := sessionFor[S](ts.engine, value)
	if err != nil {
		return nil, err
	}
	ts.cache.Put("", sess.state)
	return sess.masterKey, nil
}

// Engine is the buffer-oriented TLS engine. It implements [model.Engine].
//
// The zero value is invalid; use [*Context.NewEngine].
type Engine struct {
	br                 *bridge.Bridge
	caList             []string
	carry              []byte
	completed          bool
	conn               backend
	ctx                *Context
	done               bool
	earlyData          bool
	fatal              error
	handshaking        bool
	inheritedMasterKey []byte
	keylog             *keyLogCapture
	readBuf            []byte
	readN              int
	serverName         string
	sessions           sessionSlot
	sniff              *sniffer
	state              connState
	verifyResult       int
	w                  *worker
}

var _ model.Engine = &Engine{}

// StepHandshake implements model.Engine.
func (e *Engine) StepHandshake() (model.HandshakeResult, error) {
	if e.done {
		return 0, ErrEngineClosed
	}
	if e.fatal != nil {
		return 0, e.fatal
	}
	if e.completed {
		return model.HandshakeSuccess, nil
	}
	if e.conn == nil {
		if err := e.newBackend(); err != nil {
			return 0, err
		}
	}
	if !e.handshaking {
		e.handshaking = true
		e.w.start(opHandshake, e.conn.Handshake)
	}
	parked, err := e.w.await()
	if parked {
		return model.HandshakeNeedsInput, nil
	}
	if err != nil {
		e.fatal = err
		if errors.Is(err, errClientCertificateRequested) {
			return model.HandshakeNeedsPeerIdentity, nil
		}
		return 0, err
	}
	e.completed = true
	e.state = e.conn.connState()
	return model.HandshakeSuccess, nil
}

// newBackend creates the backend conn bound to the bridge.
func (e *Engine) newBackend() error {
	conn, err := e.ctx.flavor.newBackend(e, e.br.Conn())
	if err != nil {
		e.fatal = err
		return err
	}
	e.conn = conn
	return nil
}

// Decrypt implements model.Engine.
func (e *Engine) Decrypt(maxLen int) ([]byte, error) {
	if e.done {
		return nil, ErrEngineClosed
	}
	if !e.completed {
		// an implicit handshake, as when reading early
		result, err := e.StepHandshake()
		if err != nil {
			return nil, err
		}
		switch result {
		case model.HandshakeNeedsInput:
			return nil, model.ErrWantRead
		case model.HandshakeNeedsPeerIdentity:
			return nil, errClientCertificateRequested
		}
	}
	if len(e.carry) > 0 {
		return e.takeCarry(maxLen), nil
	}
	if e.w.pending() == opNone {
		if e.readBuf == nil {
			e.readBuf = make([]byte, readBufferSize)
		}
		e.w.start(opRead, func() (err error) {
			e.readN, err = e.conn.Read(e.readBuf)
			return
		})
	}
	parked, err := e.w.await()
	if parked {
		return nil, model.ErrWantRead
	}
	e.carry = append(e.carry, e.readBuf[:e.readN]...)
	e.readN = 0
	if err != nil && len(e.carry) <= 0 {
		if errors.Is(err, io.EOF) {
			return nil, model.ErrZeroReturn
		}
		return nil, err
	}
	return e.takeCarry(maxLen), nil
}

func (e *Engine) takeCarry(maxLen int) []byte {
	if maxLen < 0 {
		maxLen = 0
	}
	if maxLen > len(e.carry) {
		maxLen = len(e.carry)
	}
	out := append([]byte{}, e.carry[:maxLen]...)
	e.carry = e.carry[maxLen:]
	return out
}

// Encrypt implements model.Engine.
func (e *Engine) Encrypt(data []byte) error {
	if e.done {
		return ErrEngineClosed
	}
	if !e.completed {
		return ErrHandshakeNotComplete
	}
	_, err := e.conn.Write(data)
	return err
}

// WriteEarlyData implements model.Engine. Only the mint engine can send
// early data and only when resuming a session. You can call this method
// more than once before starting the handshake.
func (e *Engine) WriteEarlyData(data []byte) error {
	if e.done {
		return ErrEngineClosed
	}
	if e.fatal != nil {
		return e.fatal
	}
	if e.handshaking {
		return model.ErrHandshakeStarted
	}
	if !e.ctx.flavor.canWriteEarlyData() {
		return fmt.Errorf("%w by the %s engine", model.ErrEarlyDataUnsupported, e.ctx.flavor.name())
	}
	if e.conn == nil {
		if e.sessions.session(nil) == nil {
			return fmt.Errorf("%w without a session to resume", model.ErrEarlyDataUnsupported)
		}
		e.earlyData = true
		if err := e.newBackend(); err != nil {
			return err
		}
	}
	return e.conn.(earlyDataBackend).writeEarlyData(data)
}

// EarlyDataStatus implements model.Engine. Once we have written early
// data, the status is Rejected until the server accepts it.
func (e *Engine) EarlyDataStatus() model.EarlyDataStatus {
	if !e.earlyData {
		return model.EarlyDataNotSent
	}
	if backend, good := e.conn.(earlyDataBackend); good && e.completed && backend.earlyDataAccepted() {
		return model.EarlyDataAccepted
	}
	return model.EarlyDataRejected
}

// PendingOutbound implements model.Engine.
func (e *Engine) PendingOutbound() int {
	return e.br.PendingOutbound()
}

// DrainOutbound implements model.Engine.
func (e *Engine) DrainOutbound(n int) []byte {
	return e.br.DrainOutbound(n)
}

// FeedInbound implements model.Engine.
func (e *Engine) FeedInbound(data []byte) {
	e.sniff.feed(data)
	e.br.FeedInbound(data)
}

// Shutdown implements model.Engine. With a completed handshake, this
// method queues a close_notify alert for the peer and does not wait for
// the peer's close_notify. Calling Shutdown more than once is a no-op.
func (e *Engine) Shutdown() error {
	if e.done {
		return nil
	}
	e.done = true
	switch {
	case e.conn == nil:
		e.w.abort()
		return model.ErrShutdownUninitialized
	case !e.completed:
		e.w.abort()
		return model.ErrShutdownInInit
	default:
		err := e.conn.Close() // sends close_notify and closes the bridge
		e.w.abort()
		return err
	}
}

// Free implements model.Engine. It is safe to call this method more
// than once and after Shutdown.
func (e *Engine) Free() {
	e.done = true
	e.w.abort()
}

// SetServerName implements model.Engine.
func (e *Engine) SetServerName(name string) error {
	if e.conn != nil || e.done {
		return model.ErrHandshakeStarted
	}
	e.serverName = name
	return nil
}

// SetSession implements model.Engine.
func (e *Engine) SetSession(value model.Session) error {
	if e.conn != nil || e.done {
		return model.ErrHandshakeStarted
	}
	masterKey, err := e.sessions.install(value)
	if err != nil {
		return err
	}
	e.inheritedMasterKey = masterKey
	return nil
}

// Session implements model.Engine.
func (e *Engine) Session() model.Session {
	return e.sessions.session(e.masterKey())
}

// masterKey returns the TLS 1.2 master key, if known.
func (e *Engine) masterKey() []byte {
	if !e.completed || e.state.version >= tls.VersionTLS13 {
		return nil
	}
	if e.state.didResume {
		return e.inheritedMasterKey
	}
	return e.keylog.get()
}

// PeerCertificates implements model.Engine.
func (e *Engine) PeerCertificates() []*x509.Certificate {
	return append([]*x509.Certificate{}, e.state.peerCertificates...)
}

// CipherSuite implements model.Engine.
func (e *Engine) CipherSuite() (model.CipherSuite, bool) {
	if !e.completed {
		return model.CipherSuite{}, false
	}
	id := e.state.cipherSuite
	name := tls.CipherSuiteName(id)
	if cs, found := cipherSuiteByID(id); found {
		name = cs.Name
	}
	return model.CipherSuite{ID: id, Name: name, Bits: cipherSuiteBits(name)}, true
}

// VersionCode implements model.Engine.
func (e *Engine) VersionCode() uint16 {
	return e.state.version
}

// VerifyResult implements model.Engine.
func (e *Engine) VerifyResult() int {
	return e.verifyResult
}

// ClientCAList implements model.Engine.
func (e *Engine) ClientCAList() []string {
	return append([]string{}, e.caList...)
}

// OCSPResponse implements model.Engine.
func (e *Engine) OCSPResponse() []byte {
	return e.state.ocspResponse
}

// PeerSignature implements model.Engine. We only know the signature
// the peer used for the TLS 1.2 key exchange parameters.
func (e *Engine) PeerSignature() (digest, typ string, ok bool) {
	return e.sniff.peerSignature()
}

// Secrets implements model.Engine. The session ID is empty when the
// server only issues session tickets.
func (e *Engine) Secrets() (sessionID, masterKey []byte, err error) {
	masterKey = e.masterKey()
	if len(masterKey) <= 0 {
		return nil, nil, model.ErrNoSecrets
	}
	return e.sniff.serverSessionID(), masterKey, nil
}

// CipherList implements model.Engine.
func (e *Engine) CipherList() []string {
	return e.ctx.CipherList()
}

// EngineName returns the name of the engine kind.
func (e *Engine) EngineName() string {
	return e.ctx.EngineName()
}

// verifyPeer verifies the peer chain and decides whether to continue
// the handshake. The TLS library calls it on the worker goroutine.
func (e *Engine) verifyPeer(chain []*x509.Certificate) error {
	mode := e.ctx.settings.VerifyMode
	if len(chain) <= 0 {
		if mode == model.VerifyFailIfNoPeerCert {
			e.verifyResult = VerifyUnspecified
			return &VerifyError{Code: VerifyUnspecified, Err: errNoPeerCertificate}
		}
		return nil
	}
	code, err := verifyChain(chain, e.ctx.settings.TrustAnchors, time.Now())
	e.verifyResult = code
	if code != VerifyOK && mode != model.VerifyNone {
		return &VerifyError{Code: code, Err: err}
	}
	return nil
}

// clientCertificate decides what to do when the peer requests a client
// certificate. The TLS library calls it on the worker goroutine.
func (e *Engine) clientCertificate(acceptableCAs [][]byte) (*tls.Certificate, error) {
	e.caList = formatAcceptableCAs(acceptableCAs)
	if cert := e.ctx.settings.ClientCertificate; cert != nil {
		return cert, nil
	}
	if e.ctx.settings.RefuseClientAuth {
		return &tls.Certificate{}, nil
	}
	return nil, errClientCertificateRequested
}
