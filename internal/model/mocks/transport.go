package mocks

import "github.com/ooni/sslclient/internal/model"

// Transport allows mocking a model.Transport.
type Transport struct {
	MockSend func(data []byte) error

	MockRecv func(maxLen int) ([]byte, error)
}

var _ model.Transport = &Transport{}

// Send calls MockSend.
func (txp *Transport) Send(data []byte) error {
	return txp.MockSend(data)
}

// Recv calls MockRecv.
func (txp *Transport) Recv(maxLen int) ([]byte, error) {
	return txp.MockRecv(maxLen)
}
