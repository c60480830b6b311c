package credentials_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ooni/sslclient/internal/credentials"
	"github.com/ooni/sslclient/internal/model"
	"github.com/ooni/sslclient/internal/testingx"
)

func TestLoadTrustAnchors(t *testing.T) {
	pool := testingx.MustNewServerPool()
	defer pool.Close()

	t.Run("with a PEM file", func(t *testing.T) {
		anchors, err := credentials.LoadTrustAnchors(pool.MustWriteCAFile(t.TempDir()))
		if err != nil {
			t.Fatal(err)
		}
		if anchors == nil {
			t.Fatal("expected non-nil pool")
		}
	})

	t.Run("with a DER file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ca.der")
		if err := os.WriteFile(path, pool.CACert().Raw, 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := credentials.LoadTrustAnchors(path); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("with a nonexistent file", func(t *testing.T) {
		_, err := credentials.LoadTrustAnchors(filepath.Join(t.TempDir(), "nonexistent.pem"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("with a file not containing certificates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.pem")
		if err := os.WriteFile(path, []byte("antani"), 0600); err != nil {
			t.Fatal(err)
		}
		_, err := credentials.LoadTrustAnchors(path)
		if !errors.Is(err, credentials.ErrNoCertificates) {
			t.Fatal("unexpected err", err)
		}
	})
}

func TestLoadIdentity(t *testing.T) {
	pool := testingx.MustNewServerPool()
	defer pool.Close()
	identity := pool.MustNewClientIdentity("client.example.com")
	other := testingx.MustNewServerPool()
	defer other.Close()
	otherIdentity := other.MustNewClientIdentity("other.example.com")

	t.Run("with a clear text PEM key", func(t *testing.T) {
		chainFile, keyFile := testingx.MustWriteIdentityFiles(t.TempDir(), identity, model.FileTypePEM, "")
		cert, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: chainFile,
			KeyFile:   keyFile,
			KeyType:   model.FileTypePEM,
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(cert.Certificate) != len(identity.Certificate) {
			t.Fatal("unexpected chain length", len(cert.Certificate))
		}
		if cert.Leaf.Subject.CommonName != "client.example.com" {
			t.Fatal("unexpected leaf", cert.Leaf.Subject.CommonName)
		}
	})

	t.Run("with an encrypted PEM key and the right password", func(t *testing.T) {
		chainFile, keyFile := testingx.MustWriteIdentityFiles(t.TempDir(), identity, model.FileTypePEM, "antani")
		_, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: chainFile,
			KeyFile:   keyFile,
			KeyType:   model.FileTypePEM,
			Password:  "antani",
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("with an encrypted PEM key and the wrong password", func(t *testing.T) {
		chainFile, keyFile := testingx.MustWriteIdentityFiles(t.TempDir(), identity, model.FileTypePEM, "antani")
		_, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: chainFile,
			KeyFile:   keyFile,
			KeyType:   model.FileTypePEM,
			Password:  "mascetti",
		})
		if !errors.Is(err, credentials.ErrIncorrectPassword) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("with an encrypted PKCS#8 PEM key and the right password", func(t *testing.T) {
		chainFile, keyFile := testingx.MustWriteEncryptedPKCS8IdentityFiles(t.TempDir(), identity, model.FileTypePEM, "antani")
		cert, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: chainFile,
			KeyFile:   keyFile,
			KeyType:   model.FileTypePEM,
			Password:  "antani",
		})
		if err != nil {
			t.Fatal(err)
		}
		if cert.Leaf.Subject.CommonName != "client.example.com" {
			t.Fatal("unexpected leaf", cert.Leaf.Subject.CommonName)
		}
	})

	for _, password := range []string{"", "mascetti"} {
		t.Run("with an encrypted PKCS#8 PEM key and password "+password, func(t *testing.T) {
			chainFile, keyFile := testingx.MustWriteEncryptedPKCS8IdentityFiles(t.TempDir(), identity, model.FileTypePEM, "antani")
			_, err := credentials.LoadIdentity(&credentials.Identity{
				ChainFile: chainFile,
				KeyFile:   keyFile,
				KeyType:   model.FileTypePEM,
				Password:  password,
			})
			if !errors.Is(err, credentials.ErrIncorrectPassword) {
				t.Fatal("unexpected err", err)
			}
		})
	}

	t.Run("with an encrypted PKCS#8 DER key and the right password", func(t *testing.T) {
		chainFile, keyFile := testingx.MustWriteEncryptedPKCS8IdentityFiles(t.TempDir(), identity, model.FileTypeASN1, "antani")
		cert, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: chainFile,
			KeyFile:   keyFile,
			KeyType:   model.FileTypeASN1,
			Password:  "antani",
		})
		if err != nil {
			t.Fatal(err)
		}
		if cert.Leaf.Subject.CommonName != "client.example.com" {
			t.Fatal("unexpected leaf", cert.Leaf.Subject.CommonName)
		}
	})

	for _, password := range []string{"", "mascetti"} {
		t.Run("with an encrypted PKCS#8 DER key and password "+password, func(t *testing.T) {
			chainFile, keyFile := testingx.MustWriteEncryptedPKCS8IdentityFiles(t.TempDir(), identity, model.FileTypeASN1, "antani")
			_, err := credentials.LoadIdentity(&credentials.Identity{
				ChainFile: chainFile,
				KeyFile:   keyFile,
				KeyType:   model.FileTypeASN1,
				Password:  password,
			})
			if !errors.Is(err, credentials.ErrIncorrectPassword) {
				t.Fatal("unexpected err", err)
			}
		})
	}

	t.Run("with a DER key", func(t *testing.T) {
		chainFile, keyFile := testingx.MustWriteIdentityFiles(t.TempDir(), identity, model.FileTypeASN1, "")
		_, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: chainFile,
			KeyFile:   keyFile,
			KeyType:   model.FileTypeASN1,
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("with a DER key declared as PEM", func(t *testing.T) {
		chainFile, keyFile := testingx.MustWriteIdentityFiles(t.TempDir(), identity, model.FileTypeASN1, "")
		_, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: chainFile,
			KeyFile:   keyFile,
			KeyType:   model.FileTypePEM,
		})
		if !errors.Is(err, credentials.ErrNoPrivateKey) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("with an invalid key type", func(t *testing.T) {
		chainFile, keyFile := testingx.MustWriteIdentityFiles(t.TempDir(), identity, model.FileTypePEM, "")
		_, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: chainFile,
			KeyFile:   keyFile,
			KeyType:   model.FileType(0),
		})
		if !errors.Is(err, credentials.ErrInvalidFileType) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("with a key not matching the certificate", func(t *testing.T) {
		chainFile, _ := testingx.MustWriteIdentityFiles(t.TempDir(), identity, model.FileTypePEM, "")
		_, keyFile := testingx.MustWriteIdentityFiles(t.TempDir(), otherIdentity, model.FileTypePEM, "")
		_, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: chainFile,
			KeyFile:   keyFile,
			KeyType:   model.FileTypePEM,
		})
		if !errors.Is(err, credentials.ErrKeyMismatch) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("with a nonexistent key file", func(t *testing.T) {
		chainFile, _ := testingx.MustWriteIdentityFiles(t.TempDir(), identity, model.FileTypePEM, "")
		_, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: chainFile,
			KeyFile:   filepath.Join(t.TempDir(), "nonexistent.pem"),
			KeyType:   model.FileTypePEM,
		})
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("with a nonexistent chain file", func(t *testing.T) {
		_, keyFile := testingx.MustWriteIdentityFiles(t.TempDir(), identity, model.FileTypePEM, "")
		_, err := credentials.LoadIdentity(&credentials.Identity{
			ChainFile: filepath.Join(t.TempDir(), "nonexistent.pem"),
			KeyFile:   keyFile,
			KeyType:   model.FileTypePEM,
		})
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatal("unexpected err", err)
		}
	})
}
