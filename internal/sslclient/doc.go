// Package sslclient implements a blocking TLS client session driver.
//
// A [*Client] drives a buffer-oriented [model.Engine] over a blocking
// [model.Transport]. The engine never touches the network: the client
// moves ciphertext between the engine and the transport, always sending
// the pending outbound ciphertext before blocking to receive.
//
// The typical lifecycle is New, Handshake, any number of Write and Read
// calls, Shutdown, and finally Close. A Client is not safe for concurrent
// use: create one Client per connection.
package sslclient
