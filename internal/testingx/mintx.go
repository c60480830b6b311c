package testingx

import (
	"context"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"sync"

	"github.com/bifurcation/mint"
	"github.com/ooni/sslclient/internal/runtimex"
)

// MustNewMintEchoServer creates a TLS 1.3 server using [github.com/bifurcation/mint]
// that presents a certificate for serverName, issues session tickets, accepts
// early data from resuming clients, and echoes what it receives.
func MustNewMintEchoServer(mitm TLSMITMProvider, serverName string) *TLSServer {
	chi := &tls.ClientHelloInfo{ServerName: serverName}
	ms := &mintEchoServer{
		cert: runtimex.Try1(newMintCertificate(runtimex.Try1(mitm.ServerTLSConfig().GetCertificate(chi)))),
		psks: &mintPSKMap{m: map[string]mint.PreSharedKey{}},
	}
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
	return mustStartTLSServer(addr, &TCPListenerStdlib{}, nil, ms.serve)
}

// mintEchoServer is the state shared by the conns of a mint server.
type mintEchoServer struct {
	cert *mint.Certificate
	psks *mintPSKMap
}

func (ms *mintEchoServer) serve(p *TLSServer, ctx context.Context, tcpConn net.Conn) {
	// mint initializes the config in place, so each conn needs its own
	config := &mint.Config{
		AllowEarlyData:     true,
		Certificates:       []*mint.Certificate{ms.cert},
		EarlyDataLifetime:  1 << 14,
		PSKs:               ms.psks,
		SendSessionTickets: true,
		TicketLifetime:     3600,
	}
	conn := mint.Server(tcpConn, config)
	if alert := conn.Handshake(); alert != mint.AlertNoAlert {
		return
	}
	defer conn.Close()
	_, _ = io.Copy(conn, conn)
}

func newMintCertificate(cert *tls.Certificate) (*mint.Certificate, error) {
	out := &mint.Certificate{PrivateKey: cert.PrivateKey.(crypto.Signer)}
	for _, der := range cert.Certificate {
		c, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, err
		}
		out.Chain = append(out.Chain, c)
	}
	return out, nil
}

// mintPSKMap is a [mint.PreSharedKeyCache] safe for concurrent use.
type mintPSKMap struct {
	m  map[string]mint.PreSharedKey
	mu sync.Mutex
}

func (c *mintPSKMap) Get(key string) (mint.PreSharedKey, bool) {
	defer c.mu.Unlock()
	c.mu.Lock()
	psk, found := c.m[key]
	return psk, found
}

func (c *mintPSKMap) Put(key string, psk mint.PreSharedKey) {
	defer c.mu.Unlock()
	c.mu.Lock()
	c.m[key] = psk
}

func (c *mintPSKMap) Size() int {
	defer c.mu.Unlock()
	c.mu.Lock()
	return len(c.m)
}
