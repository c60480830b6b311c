// Package bridge contains the buffer bridge connecting a TLS engine
// to a transport it never touches directly.
//
// A [*Bridge] holds two FIFO byte queues. The outbound queue collects
// the ciphertext the engine writes; the inbound queue collects the
// ciphertext received from the peer. The engine sees the bridge as the
// [net.Conn] returned by [*Bridge.Conn] and the network side uses
// [*Bridge.FeedInbound], [*Bridge.PendingOutbound] and [*Bridge.DrainOutbound].
//
// Reading from the engine side blocks while the inbound queue is empty. Every
// time the reader parks, the bridge emits a token on the channel returned by
// [*Bridge.Parked], which allows the code driving the engine to notice that
// the engine cannot make progress without more ciphertext.
package bridge
