package mocks

import (
	"crypto/x509"

	"github.com/ooni/sslclient/internal/model"
)

// Engine allows mocking a model.Engine.
type Engine struct {
	MockStepHandshake func() (model.HandshakeResult, error)

	MockDecrypt func(maxLen int) ([]byte, error)

	MockEncrypt func(data []byte) error

	MockWriteEarlyData func(data []byte) error

	MockEarlyDataStatus func() model.EarlyDataStatus

	MockPendingOutbound func() int

	MockDrainOutbound func(n int) []byte

	MockFeedInbound func(data []byte)

	MockShutdown func() error

	MockFree func()

	MockSetServerName func(name string) error

	MockSetSession func(session model.Session) error

	MockSession func() model.Session

	MockPeerCertificates func() []*x509.Certificate

	MockCipherSuite func() (model.CipherSuite, bool)

	MockVersionCode func() uint16

	MockVerifyResult func() int

	MockClientCAList func() []string

	MockOCSPResponse func() []byte

	MockPeerSignature func() (string, string, bool)

	MockSecrets func() ([]byte, []byte, error)

	MockCipherList func() []string
}

var _ model.Engine = &Engine{}

// StepHandshake calls MockStepHandshake.
func (e *Engine) StepHandshake() (model.HandshakeResult, error) {
	return e.MockStepHandshake()
}

// Decrypt calls MockDecrypt.
func (e *Engine) Decrypt(maxLen int) ([]byte, error) {
	return e.MockDecrypt(maxLen)
}

// Encrypt calls MockEncrypt.
func (e *Engine) Encrypt(data []byte) error {
	return e.MockEncrypt(data)
}

// WriteEarlyData calls MockWriteEarlyData.
func (e *Engine) WriteEarlyData(data []byte) error {
	return e.MockWriteEarlyData(data)
}

// EarlyDataStatus calls MockEarlyDataStatus.
func (e *Engine) EarlyDataStatus() model.EarlyDataStatus {
	return e.MockEarlyDataStatus()
}

// PendingOutbound calls MockPendingOutbound.
func (e *Engine) PendingOutbound() int {
	return e.MockPendingOutbound()
}

// DrainOutbound calls MockDrainOutbound.
func (e *Engine) DrainOutbound(n int) []byte {
	return e.MockDrainOutbound(n)
}

// FeedInbound calls MockFeedInbound.
func (e *Engine) FeedInbound(data []byte) {
	e.MockFeedInbound(data)
}

// Shutdown calls MockShutdown.
func (e *Engine) Shutdown() error {
	return e.MockShutdown()
}

// Free calls MockFree.
func (e *Engine) Free() {
	e.MockFree()
}

// SetServerName calls MockSetServerName.
func (e *Engine) SetServerName(name string) error {
	return e.MockSetServerName(name)
}

// SetSession calls MockSetSession.
func (e *Engine) SetSession(session model.Session) error {
	return e.MockSetSession(session)
}

// Session calls MockSession.
func (e *Engine) Session() model.Session {
	return e.MockSession()
}

// PeerCertificates calls MockPeerCertificates.
func (e *Engine) PeerCertificates() []*x509.Certificate {
	return e.MockPeerCertificates()
}

// CipherSuite calls MockCipherSuite.
func (e *Engine) CipherSuite() (model.CipherSuite, bool) {
	return e.MockCipherSuite()
}

// VersionCode calls MockVersionCode.
func (e *Engine) VersionCode() uint16 {
	return e.MockVersionCode()
}

// VerifyResult calls MockVerifyResult.
func (e *Engine) VerifyResult() int {
	return e.MockVerifyResult()
}

// ClientCAList calls MockClientCAList.
func (e *Engine) ClientCAList() []string {
	return e.MockClientCAList()
}

// OCSPResponse calls MockOCSPResponse.
func (e *Engine) OCSPResponse() []byte {
	return e.MockOCSPResponse()
}

// PeerSignature calls MockPeerSignature.
func (e *Engine) PeerSignature() (string, string, bool) {
	return e.MockPeerSignature()
}

// Secrets calls MockSecrets.
func (e *Engine) Secrets() ([]byte, []byte, error) {
	return e.MockSecrets()
}

// CipherList calls MockCipherList.
func (e *Engine) CipherList() []string {
	return e.MockCipherList()
}

// Session allows mocking a model.Session.
type Session struct {
	MockEngineName func() string
}

var _ model.Session = &Session{}

// EngineName calls MockEngineName.
func (s *Session) EngineName() string {
	return s.MockEngineName()
}
