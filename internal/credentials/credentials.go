package credentials

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"os"

	"github.com/ooni/sslclient/internal/model"
	pkgerrors "github.com/pkg/errors"
	"github.com/youmark/pkcs8"
)

var (
	// ErrNoCertificates indicates that a file contains no certificates.
	ErrNoCertificates = errors.New("credentials: no certificates found")

	// ErrNoPrivateKey indicates that a file contains no private key.
	ErrNoPrivateKey = errors.New("credentials: no private key found")

	// ErrIncorrectPassword indicates that we could not decrypt the
	// private key using the given password.
	ErrIncorrectPassword = errors.New("credentials: incorrect password")

	// ErrUnsupportedKey indicates that the private key uses an
	// encoding or an algorithm we cannot handle.
	ErrUnsupportedKey = errors.New("credentials: unsupported private key")

	// ErrKeyMismatch indicates that the private key does not match
	// the public key of the leaf certificate.
	ErrKeyMismatch = errors.New("credentials: private key does not match certificate")

	// ErrInvalidFileType indicates an unknown file type.
	ErrInvalidFileType = errors.New("credentials: invalid file type")
)

// LoadTrustAnchors reads the certificates inside path and returns a pool
// containing them.
func LoadTrustAnchors(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "reading trust anchors")
	}
	certs, err := parseCertificates(data)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "parsing trust anchors from %s", path)
	}
	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}
	return pool, nil
}

// Identity describes a client identity to load.
type Identity struct {
	// ChainFile is the file containing the certificate chain, leaf first.
	ChainFile string

	// KeyFile is the file containing the private key.
	KeyFile string

	// KeyType is the format of KeyFile.
	KeyType model.FileType

	// Password is the optional password protecting the key.
	Password string
}

// LoadIdentity loads the client certificate chain and private key. The
// returned error wraps ErrIncorrectPassword when the key cannot be decrypted
// with the configured password.
func LoadIdentity(id *Identity) (*tls.Certificate, error) {
	chainData, err := os.ReadFile(id.ChainFile)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "reading client certificate chain")
	}
	keyData, err := os.ReadFile(id.KeyFile)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "reading client private key")
	}
	chain, err := parseCertificates(chainData)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "parsing client certificate chain from %s", id.ChainFile)
	}
	key, err := parsePrivateKey(keyData, id.KeyType, id.Password)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "parsing client private key from %s", id.KeyFile)
	}
	if err := checkKeyMatches(chain[0], key); err != nil {
		return nil, err
	}
	cert := &tls.Certificate{
		PrivateKey: key,
		Leaf:       chain[0],
	}
	for _, c := range chain {
		cert.Certificate = append(cert.Certificate, c.Raw)
	}
	return cert, nil
}

// parseCertificates parses PEM certificates or a single DER certificate.
func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	var out []*x509.Certificate
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		out = append(out, cert)
	}
	if len(out) <= 0 {
		if cert, err := x509.ParseCertificate(data); err == nil {
			out = append(out, cert)
		}
	}
	if len(out) <= 0 {
		return nil, ErrNoCertificates
	}
	return out, nil
}

// parsePrivateKey parses a PEM or DER private key.
func parsePrivateKey(data []byte, fileType model.FileType, password string) (crypto.PrivateKey, error) {
	switch fileType {
	case model.FileTypePEM:
		for rest := data; ; {
			var block *pem.Block
			block, rest = pem.Decode(rest)
			if block == nil {
				return nil, ErrNoPrivateKey
			}
			switch block.Type {
			case "ENCRYPTED PRIVATE KEY":
				return parseEncryptedPKCS8Key(block.Bytes, password)
			case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
				return parsePEMKeyBlock(block, password)
			}
		}
	case model.FileTypeASN1:
		if isEncryptedPKCS8Key(data) {
			return parseEncryptedPKCS8Key(data, password)
		}
		return parseDERKey(data)
	default:
		return nil, ErrInvalidFileType
	}
}

func parsePEMKeyBlock(block *pem.Block, password string) (crypto.PrivateKey, error) {
	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // legacy PEM encryption
		var err error
		der, err = x509.DecryptPEMBlock(block, []byte(password)) //nolint:staticcheck // ditto
		if err != nil {
			return nil, pkgerrors.Wrap(ErrIncorrectPassword, err.Error())
		}
		key, err := parseDERKey(der)
		if err != nil {
			// legacy PEM encryption cannot always detect a wrong password
			return nil, ErrIncorrectPassword
		}
		return key, nil
	}
	return parseDERKey(der)
}

// encryptedPrivateKeyInfo is the PKCS#8 EncryptedPrivateKeyInfo.
type encryptedPrivateKeyInfo struct {
	EncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedData       []byte
}

// isEncryptedPKCS8Key tells an encrypted PKCS#8 key apart from the other DER
// keys, which all start with an INTEGER rather than with a SEQUENCE.
func isEncryptedPKCS8Key(der []byte) bool {
	var info encryptedPrivateKeyInfo
	rest, err := asn1.Unmarshal(der, &info)
	return err == nil && len(rest) <= 0
}

func parseEncryptedPKCS8Key(der []byte, password string) (crypto.PrivateKey, error) {
	if password == "" {
		return nil, pkgerrors.Wrap(ErrIncorrectPassword, "encrypted PKCS#8 key without a password")
	}
	key, err := pkcs8.ParsePKCS8PrivateKey(der, []byte(password))
	if err != nil {
		return nil, pkgerrors.Wrap(ErrIncorrectPassword, err.Error())
	}
	switch key := key.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
		return key, nil
	default:
		return nil, ErrUnsupportedKey
	}
}

func parseDERKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch key := key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
			return key, nil
		default:
			return nil, ErrUnsupportedKey
		}
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, ErrNoPrivateKey
}

// publicKeyEqualer is implemented by all the public keys in the stdlib.
type publicKeyEqualer interface {
	Equal(x crypto.PublicKey) bool
}

func checkKeyMatches(leaf *x509.Certificate, key crypto.PrivateKey) error {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return ErrUnsupportedKey
	}
	pub, ok := signer.Public().(publicKeyEqualer)
	if !ok || !pub.Equal(leaf.PublicKey) {
		return ErrKeyMismatch
	}
	return nil
}
