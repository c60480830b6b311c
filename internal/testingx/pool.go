package testingx

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/ooni/sslclient/internal/runtimex"
)

// ServerPool owns the TLS servers created by a test along with the
// CA that signs their certificates. The test that creates a pool is
// responsible for closing it, typically using t.Cleanup.
//
// The zero value is invalid; use [MustNewServerPool].
type ServerPool struct {
	// closed indicates whether we've been closed.
	closed bool

	// mitm signs the servers' certificates.
	mitm TLSMITMProvider

	// mu protects servers and closed.
	mu sync.Mutex

	// servers contains the servers we created.
	servers []*TLSServer
}

// MustNewServerPool creates a new [*ServerPool] with a fresh CA.
func MustNewServerPool() *ServerPool {
	return &ServerPool{
		mitm: MustNewTLSMITMProviderNetem(),
	}
}

// MITM returns the provider of the servers' certificates.
func (p *ServerPool) MITM() TLSMITMProvider {
	return p.mitm
}

// CACert returns the CA certificate.
func (p *ServerPool) CACert() *x509.Certificate {
	return p.mitm.CACert()
}

// ErrPoolClosed indicates that the pool has been closed.
var ErrPoolClosed = errors.New("testingx: server pool closed")

// NewServer creates a new localhost server owned by the pool.
func (p *ServerPool) NewServer(handler TLSHandler, options ...TLSServerOption) (*TLSServer, error) {
	defer p.mu.Unlock()
	p.mu.Lock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	srv := MustNewTLSServer(handler, options...)
	p.servers = append(p.servers, srv)
	return srv, nil
}

// MustNewServer is like NewServer but panics on failure.
func (p *ServerPool) MustNewServer(handler TLSHandler, options ...TLSServerOption) *TLSServer {
	return runtimex.Try1(p.NewServer(handler, options...))
}

// MustNewMintEchoServer is like [MustNewMintEchoServer] but the server is
// owned by the pool and signed by the pool's CA.
func (p *ServerPool) MustNewMintEchoServer(serverName string) *TLSServer {
	defer p.mu.Unlock()
	p.mu.Lock()
	runtimex.Assert(!p.closed, "testingx: server pool closed")
	srv := MustNewMintEchoServer(p.mitm, serverName)
	p.servers = append(p.servers, srv)
	return srv
}

// Close closes all the servers. This method is idempotent.
func (p *ServerPool) Close() error {
	p.mu.Lock()
	servers := p.servers
	p.servers = nil
	p.closed = true
	p.mu.Unlock()
	for _, srv := range servers {
		srv.Close()
	}
	return nil
}

// MustWriteCAFile writes the PEM encoded CA certificate inside dir
// and returns the file path.
func (p *ServerPool) MustWriteCAFile(dir string) string {
	path := filepath.Join(dir, "ca.pem")
	block := &pem.Block{Type: "CERTIFICATE", Bytes: p.mitm.CACert().Raw}
	runtimex.Try0(os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

// MustNewClientIdentity returns a certificate for the given common name
// signed by the pool's CA, along with its private key.
func (p *ServerPool) MustNewClientIdentity(commonName string) *tls.Certificate {
	chi := &tls.ClientHelloInfo{ServerName: commonName}
	return runtimex.Try1(p.mitm.ServerTLSConfig().GetCertificate(chi))
}
