// Package tlsengine contains the buffer-oriented TLS engines.
//
// An engine never touches the network. The caller feeds the ciphertext
// received from the peer using FeedInbound and drains the ciphertext to
// send using DrainOutbound. Under the hood, each engine runs a blocking
// TLS conn on a goroutine over a [bridge.Bridge] and every call returns
// as soon as the operation completes or the conn parks waiting for more
// ciphertext from the peer.
//
// We support two kinds of engines: one based on crypto/tls and one based
// on github.com/refraction-networking/utls. Both are created from an
// immutable [*Context] holding the validated settings.
package tlsengine
