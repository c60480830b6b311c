// Package config contains the sslprobe profile. A profile is a JSON
// or TOML file describing the server to connect to and the TLS
// settings to use for the session.
package config

import (
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// ReadConfig reads the profile from the path. Files with the .toml
// extension are parsed as TOML, all the other files as JSON.
func ReadConfig(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if isTOML(path) {
		c, err = readTOML(path)
	} else {
		c, err = readJSON(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	c.path = path
	return c, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func readJSON(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func readTOML(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, errors.Wrap(err, "parsing toml")
	}
	return finish(&c)
}

// ParseConfig returns the profile from JSON bytes.
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrap(err, "parsing json")
	}
	return finish(&c)
}

// ParseTOML returns the profile from TOML bytes.
func ParseTOML(b []byte) (*Config, error) {
	var c Config
	if _, err := toml.Decode(string(b), &c); err != nil {
		return nil, errors.Wrap(err, "parsing toml")
	}
	return finish(&c)
}

func finish(c *Config) (*Config, error) {
	if err := c.Default(); err != nil {
		return nil, errors.Wrap(err, "defaulting")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating")
	}
	return c, nil
}

// Config is an sslprobe profile.
type Config struct {
	Comment string `json:"_,omitempty" toml:"_,omitempty"`

	// Address is the TCP endpoint to connect to. When the port is
	// missing we use 443.
	Address string `json:"address" toml:"address"`

	// ServerName is the SNI. When empty, we use the host in Address
	// unless it is an IP address.
	ServerName string `json:"server_name,omitempty" toml:"server_name,omitempty"`

	// Timeout is the receive timeout (default: "10s").
	Timeout string `json:"timeout,omitempty" toml:"timeout,omitempty"`

	TLS      TLS      `json:"tls" toml:"tls"`
	Advanced Advanced `json:"advanced" toml:"advanced"`

	mutex sync.Mutex
	path  string
}

// Write writes the profile to the path it was read from using
// the same encoding.
func (c *Config) Write() error {
	c.Lock()
	defer c.Unlock()
	if c.path == "" {
		return errors.New("config file path is empty")
	}
	return c.writeLocked(c.path)
}

// WriteTo is like Write but uses the given path, which becomes
// the path used by following calls to Write.
func (c *Config) WriteTo(path string) error {
	c.Lock()
	defer c.Unlock()
	if err := c.writeLocked(path); err != nil {
		return err
	}
	c.path = path
	return nil
}

func (c *Config) writeLocked(path string) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return errors.Wrap(err, "encoding TOML")
		}
		data = buf.Bytes()
	} else {
		data, _ = json.MarshalIndent(c, "", "  ")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "writing config")
	}
	return nil
}

// Lock acquires the write mutex
func (c *Config) Lock() {
	c.mutex.Lock()
}

// Unlock releases the write mutex
func (c *Config) Unlock() {
	c.mutex.Unlock()
}

// defaultTimeout is the default receive timeout.
const defaultTimeout = "10s"

// Default fills the empty fields with their default values.
func (c *Config) Default() error {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address != "" {
		if _, _, err := net.SplitHostPort(c.Address); err != nil {
			c.Address = net.JoinHostPort(strings.Trim(c.Address, "[]"), "443")
		}
	}
	if c.ServerName == "" && c.Address != "" {
		host, _, err := net.SplitHostPort(c.Address)
		if err != nil {
			return err
		}
		if net.ParseIP(host) == nil {
			c.ServerName = host
		}
	}
	if c.Timeout == "" {
		c.Timeout = defaultTimeout
	}
	c.TLS.Default()
	return nil
}

// Validate the profile.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("missing address")
	}
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return errors.Wrap(err, "invalid timeout")
	}
	if timeout < 0 {
		return errors.Errorf("negative timeout: %s", c.Timeout)
	}
	return c.TLS.Validate()
}

// ReceiveTimeout returns the parsed receive timeout.
func (c *Config) ReceiveTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Timeout)
	return timeout
}
