package main

//
// Flags overriding the profile
//

import (
	"strings"

	"github.com/ooni/sslclient/config"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// profileFlags contains the flags that override the profile. Empty
// strings and false booleans leave the profile untouched.
type profileFlags struct {
	caFile           string
	certFile         string
	ciphers          []string
	engine           string
	ignoreClientAuth bool
	keyFile          string
	keyPassword      string
	keyType          string
	keylog           string
	noTickets        bool
	parrot           string
	serverName       string
	sigalgs          string
	timeout          string
	verify           string
	version          string
}

// register registers the flags with the given flag set.
func (pf *profileFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&pf.caFile, "ca-file", "", "PEM file containing the trust anchors (default: system roots)")
	flags.StringVar(&pf.certFile, "cert", "", "PEM file containing the client certificate chain")
	flags.StringSliceVar(&pf.ciphers, "cipher", nil, "cipher suite to enable (may be specified multiple times)")
	flags.StringVar(&pf.engine, "engine", "", "TLS engine to use (one of: stdlib, utls, mint)")
	flags.BoolVar(&pf.ignoreClientAuth, "ignore-client-auth", false, "continue without a certificate when the server requests one")
	flags.StringVar(&pf.keyFile, "key", "", "file containing the client private key")
	flags.StringVar(&pf.keyPassword, "key-password", "", "password protecting the client private key")
	flags.StringVar(&pf.keyType, "key-type", "", "encoding of the client private key (one of: PEM, DER)")
	flags.StringVar(&pf.keylog, "keylog", "", "append the session secrets to the given file")
	flags.BoolVar(&pf.noTickets, "no-tickets", false, "disable stateless session resumption")
	flags.StringVar(&pf.parrot, "parrot", "", "ClientHello the utls engine should parrot (e.g., chrome)")
	flags.StringVar(&pf.serverName, "sni", "", "server name to send in the ClientHello")
	flags.StringVar(&pf.sigalgs, "sigalgs", "", "signature algorithms to advertise (e.g., RSA+SHA256:ECDSA+SHA256)")
	flags.StringVar(&pf.timeout, "timeout", "", "receive timeout (e.g., 10s)")
	flags.StringVar(&pf.verify, "verify", "", "verify mode (one of: none, peer, fail_if_no_peer_cert, client_once)")
	flags.StringVar(&pf.version, "tls-version", "", "protocol version (e.g., TLSv1.2)")
}

// override applies the flags to the profile.
func (pf *profileFlags) override(c *config.Config) {
	setIfNotEmpty(&c.ServerName, pf.serverName)
	setIfNotEmpty(&c.Timeout, pf.timeout)
	setIfNotEmpty(&c.TLS.Version, pf.version)
	setIfNotEmpty(&c.TLS.VerifyMode, pf.verify)
	setIfNotEmpty(&c.TLS.VerifyLocations, pf.caFile)
	setIfNotEmpty(&c.TLS.ClientCertChainFile, pf.certFile)
	setIfNotEmpty(&c.TLS.ClientKeyFile, pf.keyFile)
	setIfNotEmpty(&c.TLS.ClientKeyType, pf.keyType)
	setIfNotEmpty(&c.TLS.ClientKeyPassword, pf.keyPassword)
	setIfNotEmpty(&c.TLS.SignatureAlgorithms, pf.sigalgs)
	setIfNotEmpty(&c.Advanced.Engine, pf.engine)
	setIfNotEmpty(&c.Advanced.ClientHello, pf.parrot)
	setIfNotEmpty(&c.Advanced.KeyLogFile, pf.keylog)
	if len(pf.ciphers) > 0 {
		c.TLS.CipherSuites = pf.ciphers
	}
	if pf.ignoreClientAuth {
		c.TLS.IgnoreClientAuthenticationRequests = true
	}
	if pf.noTickets {
		c.Advanced.DisableSessionTickets = true
	}
}

func setIfNotEmpty(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

// loadProfile reads the profile, if any, applies the address and the
// flags and returns the validated result.
func loadProfile(options *Options, address string, pf *profileFlags) (*config.Config, error) {
	profile := &config.Config{}
	if options.ConfigPath != "" {
		var err error
		if profile, err = config.ReadConfig(options.ConfigPath); err != nil {
			return nil, err
		}
	}
	if address != "" {
		profile.Address = address
		if pf.serverName == "" {
			profile.ServerName = ""
		}
	}
	pf.override(profile)
	if err := profile.Default(); err != nil {
		return nil, errors.Wrap(err, "defaulting")
	}
	if err := profile.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating")
	}
	return profile, nil
}
