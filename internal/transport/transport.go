// Package transport adapts a [net.Conn] to the blocking send/recv
// transport used by the TLS session driver.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/ooni/sslclient/internal/errorsx"
	"github.com/ooni/sslclient/internal/model"
)

// Conn is a [model.Transport] backed by a [net.Conn].
type Conn struct {
	// Conn is the underlying net.Conn.
	Conn net.Conn

	// ReceiveTimeout is the optional timeout for each Recv.
	ReceiveTimeout time.Duration
}

var _ model.Transport = &Conn{}

// New creates a new [*Conn]. A zero timeout means Recv may block forever.
func New(conn net.Conn, receiveTimeout time.Duration) *Conn {
	return &Conn{Conn: conn, ReceiveTimeout: receiveTimeout}
}

// Send implements model.Transport.
func (c *Conn) Send(data []byte) error {
	if _, err := c.Conn.Write(data); err != nil {
		return errorsx.NewErrWrapper(errorsx.ClassifyGenericError, errorsx.WriteOperation, err)
	}
	return nil
}

// Recv implements model.Transport. It returns an empty slice
// when the peer closed the connection.
func (c *Conn) Recv(maxLen int) ([]byte, error) {
	if c.ReceiveTimeout > 0 {
		c.Conn.SetReadDeadline(time.Now().Add(c.ReceiveTimeout))
		defer c.Conn.SetReadDeadline(time.Time{})
	}
	buffer := make([]byte, maxLen)
	count, err := c.Conn.Read(buffer)
	if errors.Is(err, io.EOF) {
		return buffer[:count], nil
	}
	if err != nil {
		return nil, errorsx.NewErrWrapper(errorsx.ClassifyGenericError, errorsx.ReadOperation, err)
	}
	return buffer[:count], nil
}

// Close closes the underlying conn.
func (c *Conn) Close() error {
	return c.Conn.Close()
}

// underlyingDialer is the dialer we use by default.
var underlyingDialer = &net.Dialer{
	Timeout:   15 * time.Second,
	KeepAlive: 15 * time.Second,
}

// Dial connects to the given address and logs the result.
func Dial(ctx context.Context, logger model.DebugLogger, network, address string) (net.Conn, error) {
	logger.Debugf("dial %s/%s...", address, network)
	start := time.Now()
	conn, err := underlyingDialer.DialContext(ctx, network, address)
	elapsed := time.Since(start)
	if err != nil {
		err = errorsx.NewErrWrapper(errorsx.ClassifyGenericError, errorsx.ConnectOperation, err)
		logger.Debugf("dial %s/%s... %s in %s", address, network, err, elapsed)
		return nil, err
	}
	logger.Debugf("dial %s/%s... ok in %s", address, network, elapsed)
	return conn, nil
}
