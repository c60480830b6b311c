// Package bytecounter contains code to track the number of
// bytes sent and received by a TLS session.
package bytecounter

import "sync/atomic"

// Counter counts bytes sent and received.
type Counter struct {
	// Received contains the bytes received.
	Received atomic.Int64

	// Sent contains the bytes sent.
	Sent atomic.Int64
}

// New creates a new Counter.
func New() *Counter {
	return &Counter{}
}

// CountBytesSent adds count to the bytes sent.
func (c *Counter) CountBytesSent(count int) {
	c.Sent.Add(int64(count))
}

// CountBytesReceived adds count to the bytes received.
func (c *Counter) CountBytesReceived(count int) {
	c.Received.Add(int64(count))
}

// BytesSent returns the bytes sent so far.
func (c *Counter) BytesSent() int64 {
	return c.Sent.Load()
}

// BytesReceived returns the bytes received so far.
func (c *Counter) BytesReceived() int64 {
	return c.Received.Load()
}

// KibiBytesSent returns the KiB sent so far.
func (c *Counter) KibiBytesSent() float64 {
	return float64(c.BytesSent()) / 1024
}

// KibiBytesReceived returns the KiB received so far.
func (c *Counter) KibiBytesReceived() float64 {
	return float64(c.BytesReceived()) / 1024
}
