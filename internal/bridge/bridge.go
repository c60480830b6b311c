package bridge

import (
	"io"
	"net"
	"sync"
	"time"
)

// Bridge is the buffer bridge. The zero value is invalid; use [New].
type Bridge struct {
	closed   bool
	cond     *sync.Cond
	inbound  []byte
	mu       sync.Mutex
	outbound []byte
	parked   chan struct{}
	waiting  bool
}

// New creates a new [*Bridge].
func New() *Bridge {
	b := &Bridge{
		parked: make(chan struct{}, 1),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// FeedInbound appends ciphertext received from the peer and wakes up
// the engine if it is waiting for input.
func (b *Bridge) FeedInbound(data []byte) {
	b.mu.Lock()
	b.inbound = append(b.inbound, data...)
	b.mu.Unlock()
	b.cond.Broadcast()
}

// PendingOutbound returns the number of outbound bytes.
func (b *Bridge) PendingOutbound() int {
	defer b.mu.Unlock()
	b.mu.Lock()
	return len(b.outbound)
}

// DrainOutbound removes and returns at most n bytes from the outbound queue.
func (b *Bridge) DrainOutbound(n int) []byte {
	defer b.mu.Unlock()
	b.mu.Lock()
	if n > len(b.outbound) {
		n = len(b.outbound)
	}
	if n <= 0 {
		return []byte{}
	}
	out := make([]byte, n)
	copy(out, b.outbound)
	b.outbound = b.outbound[n:]
	return out
}

// Parked returns the channel on which the bridge signals that the engine
// is waiting for inbound ciphertext. Tokens may be stale: use [*Bridge.IsParked]
// to confirm the engine is still waiting after receiving one.
func (b *Bridge) Parked() <-chan struct{} {
	return b.parked
}

// IsParked returns whether the engine is currently blocked reading with an
// empty inbound queue. While this is true, only [*Bridge.FeedInbound] or
// [*Bridge.Close] can make the engine progress.
func (b *Bridge) IsParked() bool {
	defer b.mu.Unlock()
	b.mu.Lock()
	return b.waiting && len(b.inbound) <= 0 && !b.closed
}

// Close closes the bridge. Pending and future engine reads return [io.EOF]
// and engine writes fail with [net.ErrClosed]. Outbound bytes written before
// closing remain available to [*Bridge.DrainOutbound]. This method is idempotent.
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cond.Broadcast()
	return nil
}

// Conn returns the engine side of the bridge.
func (b *Bridge) Conn() net.Conn {
	return &engineConn{b}
}

func (b *Bridge) read(p []byte) (int, error) {
	defer b.mu.Unlock()
	b.mu.Lock()
	for len(b.inbound) <= 0 && !b.closed {
		b.waiting = true
		select {
		case b.parked <- struct{}{}:
		default:
		}
		b.cond.Wait()
	}
	b.waiting = false
	if len(b.inbound) <= 0 {
		return 0, io.EOF
	}
	n := copy(p, b.inbound)
	b.inbound = b.inbound[n:]
	return n, nil
}

func (b *Bridge) write(p []byte) (int, error) {
	defer b.mu.Unlock()
	b.mu.Lock()
	if b.closed {
		return 0, net.ErrClosed
	}
	b.outbound = append(b.outbound, p...)
	return len(p), nil
}

// engineConn is the [net.Conn] the engine reads from and writes to.
type engineConn struct {
	b *Bridge
}

var _ net.Conn = &engineConn{}

// Read implements net.Conn
func (c *engineConn) Read(p []byte) (int, error) {
	return c.b.read(p)
}

// Write implements net.Conn
func (c *engineConn) Write(p []byte) (int, error) {
	return c.b.write(p)
}

// Close implements net.Conn
func (c *engineConn) Close() error {
	return c.b.Close()
}

// LocalAddr implements net.Conn
func (c *engineConn) LocalAddr() net.Addr {
	return bridgeAddr{}
}

// RemoteAddr implements net.Conn
func (c *engineConn) RemoteAddr() net.Addr {
	return bridgeAddr{}
}

// SetDeadline implements net.Conn. Deadlines are the transport's business.
func (c *engineConn) SetDeadline(t time.Time) error {
	return nil
}

// SetReadDeadline implements net.Conn
func (c *engineConn) SetReadDeadline(t time.Time) error {
	return nil
}

// SetWriteDeadline implements net.Conn
func (c *engineConn) SetWriteDeadline(t time.Time) error {
	return nil
}

// bridgeAddr is the address of both ends of the engine conn.
type bridgeAddr struct{}

var _ net.Addr = bridgeAddr{}

// Network implements net.Addr
func (bridgeAddr) Network() string {
	return "bridge"
}

// String implements net.Addr
func (bridgeAddr) String() string {
	return "bridge"
}
