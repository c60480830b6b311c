package sslclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ooni/sslclient/internal/errorsx"
	"github.com/ooni/sslclient/internal/keylog"
	"github.com/ooni/sslclient/internal/model"
)

// State is the state of the handshake.
type State int

const (
	// StateNotStarted means we did not start the handshake yet.
	StateNotStarted = State(iota)

	// StateInProgress means the handshake is running.
	StateInProgress

	// StateCompleted means the handshake completed successfully.
	StateCompleted

	// StateFailed means the handshake failed.
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("STATE_UNKNOWN_%d", int(s))
	}
}

// recvChunkSize is the maximum number of bytes we receive at once.
const recvChunkSize = 4096

// Client is a TLS client session. Use [New] to create a new instance.
type Client struct {
	closed     bool
	completed  bool
	engine     model.Engine
	failure    error
	id         string
	keyLogFile string
	logger     model.Logger
	serverName string
	shutdown   bool
	state      State
	txp        model.Transport
}

// New creates a new [*Client] using the given transport and config. The
// transport MAY be nil, in which case you MUST attach one using the
// SetUnderlyingTransport method before the handshake. A nil config is
// equivalent to an empty config. The returned error wraps ErrConfiguration
// when the configuration is not valid.
//
// The client does not take ownership of the transport.
func New(txp model.Transport, config *Config) (*Client, error) {
	if config == nil {
		config = &Config{}
	}
	ctx, err := config.newContext()
	if err != nil {
		return nil, err
	}
	return newClient(txp, config, ctx.NewEngine())
}

// newClient creates a client that owns the given engine.
func newClient(txp model.Transport, config *Config, engine model.Engine) (*Client, error) {
	if config.ServerName != "" {
		if err := engine.SetServerName(config.ServerName); err != nil {
			engine.Free()
			return nil, configurationError(err)
		}
	}
	keyLogFile := config.KeyLogFile
	if keyLogFile == "" {
		keyLogFile = keylog.PathFromEnv()
	}
	return &Client{
		engine:     engine,
		id:         uuid.Must(uuid.NewRandom()).String(),
		keyLogFile: keyLogFile,
		logger:     model.ValidLoggerOrDefault(config.Logger),
		serverName: config.ServerName,
		state:      StateNotStarted,
		txp:        txp,
	}, nil
}

// SetUnderlyingTransport attaches the transport. You can attach a
// transport only once during the lifetime of a client.
func (c *Client) SetUnderlyingTransport(txp model.Transport) error {
	if c.txp != nil {
		return ErrTransportAlreadySet
	}
	c.txp = txp
	return nil
}

// UnderlyingTransport returns the attached transport or nil.
func (c *Client) UnderlyingTransport() model.Transport {
	return c.txp
}

// SetTLSExtHostName sets the SNI. You cannot call this method
// after the handshake has started.
func (c *Client) SetTLSExtHostName(name string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.state != StateNotStarted {
		return ErrHandshakeStarted
	}
	if err := c.engine.SetServerName(name); err != nil {
		return err
	}
	c.serverName = name
	return nil
}

// SetSession requests resuming the given session, which MUST have been
// obtained from another client using the same engine. You cannot call
// this method after the handshake has started.
func (c *Client) SetSession(session model.Session) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.state != StateNotStarted {
		return ErrHandshakeStarted
	}
	return c.engine.SetSession(session)
}

// State returns the state of the handshake.
func (c *Client) State() State {
	return c.state
}

// IsHandshakeCompleted returns whether the handshake completed and we
// can thus exchange application data. It returns false after Shutdown.
func (c *Client) IsHandshakeCompleted() bool {
	return c.completed
}

// CipherList returns the names of the enabled cipher suites.
func (c *Client) CipherList() []string {
	return c.engine.CipherList()
}

// Handshake performs the TLS handshake. Calling this method after the
// handshake completed is a no-op, while calling it after the handshake
// failed returns the same error again.
//
// When the server requests a client certificate and we have none, this
// method returns a [*ClientCertificateRequestedError]. Other failures are
// [*errorsx.ErrWrapper] instances wrapping the underlying error.
func (c *Client) Handshake() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	switch c.state {
	case StateCompleted:
		return nil
	case StateFailed:
		return c.failure
	}
	if c.txp == nil {
		return ErrNoTransport
	}
	c.logger.Debugf("tls#%s {sni=%s}...", c.id, c.serverName)
	start := time.Now()
	c.state = StateInProgress
	err := c.handshake()
	elapsed := time.Since(start)
	if err != nil {
		c.state, c.failure = StateFailed, err
		c.logger.Debugf("tls#%s {sni=%s}... %s in %s", c.id, c.serverName, err, elapsed)
		return err
	}
	c.state, c.completed = StateCompleted, true
	suite, _ := c.engine.CipherSuite()
	c.logger.Debugf(
		"tls#%s {sni=%s}... ok in %s {cipher=%s v=%s}", c.id, c.serverName, elapsed,
		suite.Name, model.VersionFromCode(c.engine.VersionCode()))
	c.maybeLogSecrets()
	return nil
}

func (c *Client) handshake() error {
	for {
		result, err := c.engine.StepHandshake()
		if err != nil {
			return newHandshakeError(err)
		}
		switch result {
		case model.HandshakeSuccess:
			if _, err := c.flush(); err != nil {
				return newHandshakeError(err)
			}
			return nil

		case model.HandshakeNeedsInput:
			// the peer may be waiting for a flight we did not send yet
			if _, err := c.flush(); err != nil {
				return newHandshakeError(err)
			}
			data, err := c.txp.Recv(recvChunkSize)
			if err != nil {
				return newHandshakeError(err)
			}
			if len(data) <= 0 {
				return newHandshakeError(ErrPeerClosedDuringHandshake)
			}
			c.engine.FeedInbound(data)

		case model.HandshakeNeedsPeerIdentity:
			return &ClientCertificateRequestedError{CAList: c.engine.ClientCAList()}

		default:
			return newHandshakeError(fmt.Errorf("sslclient: unexpected handshake result: %s", result))
		}
	}
}

func newHandshakeError(err error) error {
	return errorsx.NewErrWrapper(errorsx.ClassifyTLSHandshakeError, errorsx.TLSHandshakeOperation, err)
}

// maybeLogSecrets appends the session secrets to the key log file. This
// operation is best effort and failures are only logged.
func (c *Client) maybeLogSecrets() {
	if c.keyLogFile == "" {
		return
	}
	sessionID, masterKey, err := c.engine.Secrets()
	if err != nil {
		c.logger.Debugf("tls#%s keylog: %s", c.id, err)
		return
	}
	if err := keylog.Append(c.keyLogFile, sessionID, masterKey); err != nil {
		c.logger.Debugf("tls#%s keylog: %s", c.id, err)
	}
}

// Read returns at most size bytes of application data. The returned
// slice MAY be empty, which does not mean that the peer closed the
// connection. When the peer closes the connection, this method
// returns an error wrapping ErrPeerClosed.
func (c *Client) Read(size int) ([]byte, error) {
	return c.read(size, true)
}

// ReadEarly is like Read but it does not require a completed handshake,
// so you can use it to read what the server sent in response to early data.
func (c *Client) ReadEarly(size int) ([]byte, error) {
	return c.read(size, false)
}

func (c *Client) read(size int, mustBeCompleted bool) ([]byte, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if c.txp == nil {
		return nil, ErrNoTransport
	}
	if mustBeCompleted && !c.completed {
		return nil, ErrHandshakeNotCompleted
	}
	for {
		data, err := c.engine.Decrypt(size)
		if err == nil {
			return data, nil
		}
		// Some engines say the peer shut down the connection when the previous
		// read drained the buffered records, so we need to check with the network.
		if !errors.Is(err, model.ErrWantRead) && !errors.Is(err, model.ErrZeroReturn) {
			return nil, newReadError(err)
		}
		if _, err := c.flush(); err != nil {
			return nil, newReadError(err)
		}
		chunk, err := c.txp.Recv(recvChunkSize)
		if err != nil {
			return nil, newReadError(err)
		}
		if len(chunk) <= 0 {
			return nil, newReadError(ErrPeerClosed)
		}
		c.engine.FeedInbound(chunk)
	}
}

func newReadError(err error) error {
	return errorsx.NewErrWrapper(errorsx.ClassifyGenericError, errorsx.ReadOperation, err)
}

// Write sends data to the peer and returns the number of ciphertext
// bytes sent, which is usually larger than len(data).
func (c *Client) Write(data []byte) (int, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	if c.txp == nil {
		return 0, ErrNoTransport
	}
	if !c.completed {
		return 0, ErrHandshakeNotCompleted
	}
	if err := c.engine.Encrypt(data); err != nil {
		return 0, newWriteError(err)
	}
	count, err := c.flush()
	if err != nil {
		return count, newWriteError(err)
	}
	return count, nil
}

// WriteEarlyData sends data as early data and returns the number of
// ciphertext bytes sent. You can only call this method before the
// handshake completes.
func (c *Client) WriteEarlyData(data []byte) (int, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	if c.state == StateCompleted {
		return 0, ErrHandshakeCompleted
	}
	if c.txp == nil {
		return 0, ErrNoTransport
	}
	if err := c.engine.WriteEarlyData(data); err != nil {
		return 0, newWriteError(err)
	}
	count, err := c.flush()
	if err != nil {
		return count, newWriteError(err)
	}
	return count, nil
}

// EarlyDataStatus returns what happened to the early data. The
// result is only meaningful after the handshake completed.
func (c *Client) EarlyDataStatus() model.EarlyDataStatus {
	return c.engine.EarlyDataStatus()
}

func newWriteError(err error) error {
	return errorsx.NewErrWrapper(errorsx.ClassifyGenericError, errorsx.WriteOperation, err)
}

// flush sends the pending outbound ciphertext and returns the number
// of bytes it sent.
func (c *Client) flush() (int, error) {
	if c.txp == nil {
		return 0, ErrNoTransport
	}
	var total int
	for {
		data := c.engine.DrainOutbound(c.engine.PendingOutbound())
		if len(data) <= 0 {
			return total, nil
		}
		if err := c.txp.Send(data); err != nil {
			return total, err
		}
		total += len(data)
	}
}

// Shutdown sends a close_notify alert to the peer. After this method
// returns, you cannot read or write anymore. Failing to send pending
// data is not an error. Calling Shutdown more than once is a no-op.
func (c *Client) Shutdown() error {
	if c.closed || c.shutdown {
		return nil
	}
	c.shutdown, c.completed = true, false
	c.logger.Debugf("tls#%s shutdown...", c.id)
	if _, err := c.flush(); err != nil {
		c.logger.Debugf("tls#%s shutdown: flush: %s", c.id, err)
	}
	err := c.engine.Shutdown()
	if _, err := c.flush(); err != nil {
		c.logger.Debugf("tls#%s shutdown: flush: %s", c.id, err)
	}
	switch {
	case errors.Is(err, model.ErrShutdownUninitialized), errors.Is(err, model.ErrShutdownInInit):
		// the handshake did not get far enough to need a shutdown
		err = nil
	case err != nil:
		err = errorsx.NewErrWrapper(errorsx.ClassifyGenericError, errorsx.TLSShutdownOperation, err)
	}
	c.logger.Debugf("tls#%s shutdown... %s", c.id, model.ErrorToStringOrOK(err))
	return err
}

// Close releases the resources used by the client. It does not close
// the transport and it does not notify the peer: call Shutdown for that.
func (c *Client) Close() error {
	if !c.closed {
		c.closed, c.completed = true, false
		c.engine.Free()
	}
	return nil
}

// checkOpen returns ErrSessionClosed after Shutdown or Close.
func (c *Client) checkOpen() error {
	if c.closed || c.shutdown {
		return ErrSessionClosed
	}
	return nil
}
