package sslclient

//
// Configuration
//

import (
	"errors"
	"fmt"

	"github.com/ooni/sslclient/internal/credentials"
	"github.com/ooni/sslclient/internal/model"
	"github.com/ooni/sslclient/internal/sigalgs"
	"github.com/ooni/sslclient/internal/tlsengine"
)

// Config contains the [*Client] configuration. The zero value is a valid
// configuration that negotiates the best protocol version with the system
// trust anchors and records, without acting on it, the outcome of the
// peer certificate verification.
type Config struct {
	// Version selects the protocol version to negotiate.
	Version model.Version

	// VerifyMode is the peer certificate verification mode.
	VerifyMode model.VerifyMode

	// VerifyLocations is the OPTIONAL file containing the trust anchors
	// in PEM format. When empty, we use the system trust anchors.
	VerifyLocations string

	// ClientCertChainFile is the OPTIONAL file containing the client
	// certificate chain in PEM format, leaf first. You MUST also set
	// ClientKeyFile when setting this field.
	ClientCertChainFile string

	// ClientKeyFile is the OPTIONAL file containing the client private key.
	ClientKeyFile string

	// ClientKeyType is the format of ClientKeyFile (default: PEM).
	ClientKeyType model.FileType

	// ClientKeyPassword is the OPTIONAL password protecting the client key.
	ClientKeyPassword string

	// IgnoreClientAuthenticationRequests causes the handshake to continue
	// without a client certificate when the server requests one. You cannot
	// set this field along with ClientCertChainFile.
	IgnoreClientAuthenticationRequests bool

	// SignatureAlgorithms is the OPTIONAL colon separated list of signature
	// algorithms to advertise (e.g., "RSA+SHA256:ECDSA+SHA256").
	SignatureAlgorithms string

	// CipherSuites contains the OPTIONAL IANA names of the cipher suites to enable.
	CipherSuites []string

	// ServerName is the OPTIONAL SNI.
	ServerName string

	// Engine is the OPTIONAL TLS engine name ("stdlib", "utls" or "mint").
	Engine string

	// ClientHello is the OPTIONAL name of the browser ClientHello the
	// utls engine should parrot (e.g., "chrome" or "firefox").
	ClientHello string

	// DisableSessionTickets disables stateless session resumption.
	DisableSessionTickets bool

	// KeyLogFile is the OPTIONAL file where to append the session secrets
	// after each successful handshake. When empty, we use the file named
	// by the SSLKEYLOGFILE environment variable, if any.
	KeyLogFile string

	// Logger is the OPTIONAL logger (default: model.DiscardLogger).
	Logger model.Logger
}

var (
	errIncompleteIdentity = errors.New("you must set both ClientCertChainFile and ClientKeyFile")
	errIdentityAndRefusal = errors.New(
		"cannot enable both ClientCertChainFile and IgnoreClientAuthenticationRequests")
)

// newContext validates the configuration and creates the context from
// which we create the engine. The order in which we apply settings is:
// server authentication, client authentication, signature algorithms.
func (c *Config) newContext() (*tlsengine.Context, error) {
	if c.ClientCertChainFile != "" && c.IgnoreClientAuthenticationRequests {
		return nil, configurationError(errIdentityAndRefusal)
	}
	if (c.ClientCertChainFile != "") != (c.ClientKeyFile != "") {
		return nil, configurationError(errIncompleteIdentity)
	}
	settings := &tlsengine.Settings{
		Version:               c.Version,
		VerifyMode:            c.VerifyMode,
		RefuseClientAuth:      c.IgnoreClientAuthenticationRequests,
		CipherSuites:          c.CipherSuites,
		Engine:                c.Engine,
		ClientHello:           c.ClientHello,
		DisableSessionTickets: c.DisableSessionTickets,
	}
	if c.VerifyLocations != "" {
		anchors, err := credentials.LoadTrustAnchors(c.VerifyLocations)
		if err != nil {
			return nil, configurationError(err)
		}
		settings.TrustAnchors = anchors
	}
	if c.ClientCertChainFile != "" {
		keyType := c.ClientKeyType
		if keyType == 0 {
			keyType = model.FileTypePEM
		}
		cert, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: c.ClientCertChainFile,
			KeyFile:   c.ClientKeyFile,
			KeyType:   keyType,
			Password:  c.ClientKeyPassword,
		})
		if errors.Is(err, credentials.ErrIncorrectPassword) {
			return nil, configurationError(fmt.Errorf("%w: %w", ErrInvalidCredential, err))
		}
		if err != nil {
			return nil, configurationError(err)
		}
		settings.ClientCertificate = cert
	}
	if c.SignatureAlgorithms != "" {
		schemes, err := sigalgs.Parse(c.SignatureAlgorithms)
		if err != nil {
			return nil, configurationError(err)
		}
		settings.SignatureAlgorithms = schemes
	}
	ctx, err := tlsengine.NewContext(settings)
	if err != nil {
		return nil, configurationError(err)
	}
	return ctx, nil
}
