package bytecounter

//
// Code to wrap a model.Transport
//

import "github.com/ooni/sslclient/internal/model"

// wrappedTransport wraps a transport and counts bytes.
type wrappedTransport struct {
	// Transport is the underlying transport.
	model.Transport

	// Counter is the byte counter.
	Counter *Counter
}

// Send implements model.Transport.Send.
func (txp *wrappedTransport) Send(data []byte) error {
	err := txp.Transport.Send(data)
	if err == nil {
		txp.Counter.CountBytesSent(len(data))
	}
	return err
}

// Recv implements model.Transport.Recv.
func (txp *wrappedTransport) Recv(maxLen int) ([]byte, error) {
	data, err := txp.Transport.Recv(maxLen)
	txp.Counter.CountBytesReceived(len(data))
	return data, err
}

// WrapTransport returns a new transport that uses the given counter.
func WrapTransport(txp model.Transport, counter *Counter) model.Transport {
	return &wrappedTransport{Transport: txp, Counter: counter}
}

// MaybeWrapTransport is like WrapTransport if counter is not nil, otherwise it's a no-op.
func MaybeWrapTransport(txp model.Transport, counter *Counter) model.Transport {
	if counter == nil {
		return txp
	}
	return WrapTransport(txp, counter)
}
