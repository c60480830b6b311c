package testingx

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"

	"github.com/ooni/sslclient/internal/model"
	"github.com/ooni/sslclient/internal/runtimex"
	"github.com/youmark/pkcs8"
)

// MustWriteIdentityFiles writes the certificate chain and the RSA private
// key of cert inside dir. The chain is always PEM encoded. The key is PEM
// or DER encoded according to keyType and, when password is not empty and
// the key is PEM encoded, it is encrypted with legacy PEM encryption. This
// function returns the paths of the chain and key files.
func MustWriteIdentityFiles(dir string, cert *tls.Certificate,
	keyType model.FileType, password string) (chainFile, keyFile string) {
	chainFile = filepath.Join(dir, "chain.pem")
	var chain []byte
	for _, der := range cert.Certificate {
		chain = append(chain, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}
	runtimex.Try0(os.WriteFile(chainFile, chain, 0600))

	key, good := cert.PrivateKey.(*rsa.PrivateKey)
	runtimex.Assert(good, "expected an RSA private key")
	der := x509.MarshalPKCS1PrivateKey(key)

	switch keyType {
	case model.FileTypeASN1:
		keyFile = filepath.Join(dir, "key.der")
		runtimex.Try0(os.WriteFile(keyFile, der, 0600))

	default:
		keyFile = filepath.Join(dir, "key.pem")
		block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}
		if password != "" {
			block = runtimex.Try1(x509.EncryptPEMBlock( //nolint:staticcheck // legacy PEM encryption
				rand.Reader, "RSA PRIVATE KEY", der, []byte(password), x509.PEMCipherAES256))
		}
		runtimex.Try0(os.WriteFile(keyFile, pem.EncodeToMemory(block), 0600))
	}
	return
}

// MustWriteEncryptedPKCS8IdentityFiles is like [MustWriteIdentityFiles] but
// it always encrypts the private key with PKCS#8 and password, using either
// the PEM or the DER encoding according to keyType.
func MustWriteEncryptedPKCS8IdentityFiles(dir string, cert *tls.Certificate,
	keyType model.FileType, password string) (chainFile, keyFile string) {
	runtimex.Assert(password != "", "expected a password")
	chainFile, _ = MustWriteIdentityFiles(dir, cert, model.FileTypePEM, "")
	der := runtimex.Try1(pkcs8.ConvertPrivateKeyToPKCS8(cert.PrivateKey, []byte(password)))
	switch keyType {
	case model.FileTypeASN1:
		keyFile = filepath.Join(dir, "key.p8")
		runtimex.Try0(os.WriteFile(keyFile, der, 0600))

	default:
		keyFile = filepath.Join(dir, "key.p8.pem")
		block := &pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der}
		runtimex.Try0(os.WriteFile(keyFile, pem.EncodeToMemory(block), 0600))
	}
	return
}
