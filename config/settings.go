package config

import (
	"github.com/ooni/sslclient/internal/model"
	"github.com/ooni/sslclient/internal/sslclient"
	"github.com/pkg/errors"
)

// TLS settings
type TLS struct {
	Version                            string   `json:"version,omitempty" toml:"version,omitempty"`
	VerifyMode                         string   `json:"verify_mode,omitempty" toml:"verify_mode,omitempty"`
	VerifyLocations                    string   `json:"verify_locations,omitempty" toml:"verify_locations,omitempty"`
	ClientCertChainFile                string   `json:"client_cert_chain_file,omitempty" toml:"client_cert_chain_file,omitempty"`
	ClientKeyFile                      string   `json:"client_key_file,omitempty" toml:"client_key_file,omitempty"`
	ClientKeyType                      string   `json:"client_key_type,omitempty" toml:"client_key_type,omitempty"`
	ClientKeyPassword                  string   `json:"client_key_password,omitempty" toml:"client_key_password,omitempty"`
	IgnoreClientAuthenticationRequests bool     `json:"ignore_client_authentication_requests,omitempty" toml:"ignore_client_authentication_requests,omitempty"`
	SignatureAlgorithms                string   `json:"signature_algorithms,omitempty" toml:"signature_algorithms,omitempty"`
	CipherSuites                       []string `json:"cipher_suites,omitempty" toml:"cipher_suites,omitempty"`
}

// Advanced settings
type Advanced struct {
	Engine                string `json:"engine,omitempty" toml:"engine,omitempty"`
	ClientHello           string `json:"client_hello,omitempty" toml:"client_hello,omitempty"`
	DisableSessionTickets bool   `json:"disable_session_tickets,omitempty" toml:"disable_session_tickets,omitempty"`
	KeyLogFile            string `json:"key_log_file,omitempty" toml:"key_log_file,omitempty"`
}

// Default fills the empty TLS settings with their default values.
func (t *TLS) Default() {
	if t.Version == "" {
		t.Version = model.VersionSSLv23.String()
	}
	if t.VerifyMode == "" {
		t.VerifyMode = model.VerifyNone.String()
	}
	if t.ClientKeyType == "" {
		t.ClientKeyType = model.FileTypePEM.String()
	}
}

// Validate the TLS settings.
func (t *TLS) Validate() error {
	if _, err := model.ParseVersion(t.Version); err != nil {
		return err
	}
	if _, err := model.ParseVerifyMode(t.VerifyMode); err != nil {
		return err
	}
	if _, err := parseFileType(t.ClientKeyType); err != nil {
		return err
	}
	if (t.ClientCertChainFile == "") != (t.ClientKeyFile == "") {
		return errors.New("client_cert_chain_file and client_key_file must be set together")
	}
	return nil
}

func parseFileType(name string) (model.FileType, error) {
	switch name {
	case "", model.FileTypePEM.String():
		return model.FileTypePEM, nil
	case model.FileTypeASN1.String(), "DER":
		return model.FileTypeASN1, nil
	default:
		return 0, errors.Errorf("invalid key type: %q", name)
	}
}

// ClientConfig returns the [*sslclient.Config] described by the
// profile. You MUST only call this method on a validated profile.
func (c *Config) ClientConfig(logger model.Logger) *sslclient.Config {
	version, _ := model.ParseVersion(c.TLS.Version)
	verifyMode, _ := model.ParseVerifyMode(c.TLS.VerifyMode)
	keyType, _ := parseFileType(c.TLS.ClientKeyType)
	return &sslclient.Config{
		Version:                            version,
		VerifyMode:                         verifyMode,
		VerifyLocations:                    c.TLS.VerifyLocations,
		ClientCertChainFile:                c.TLS.ClientCertChainFile,
		ClientKeyFile:                      c.TLS.ClientKeyFile,
		ClientKeyType:                      keyType,
		ClientKeyPassword:                  c.TLS.ClientKeyPassword,
		IgnoreClientAuthenticationRequests: c.TLS.IgnoreClientAuthenticationRequests,
		SignatureAlgorithms:                c.TLS.SignatureAlgorithms,
		CipherSuites:                       c.TLS.CipherSuites,
		ServerName:                         c.ServerName,
		Engine:                             c.Advanced.Engine,
		ClientHello:                        c.Advanced.ClientHello,
		DisableSessionTickets:              c.Advanced.DisableSessionTickets,
		KeyLogFile:                         c.Advanced.KeyLogFile,
		Logger:                             logger,
	}
}
