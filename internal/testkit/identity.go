// Package testkit issues throwaway RSA identities for tests.
//
// Identities are generated on the fly with crypto/rand and are never meant
// to leave a test. Helpers take testing.TB and fail the test on error.
package testkit

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/ssh"
)

// Identity is a certificate together with its private key.
type Identity struct {
	Certificate *x509.Certificate
	Key         *rsa.PrivateKey
}

// NewIdentity issues a self-signed certificate for commonName.
func NewIdentity(tb testing.TB, commonName string) *Identity {
	tb.Helper()
	return issue(tb, commonName, nil)
}

// Issue issues a certificate for commonName signed by ca.
func (ca *Identity) Issue(tb testing.TB, commonName string) *Identity {
	tb.Helper()
	return issue(tb, commonName, ca)
}

func issue(tb testing.TB, commonName string, ca *Identity) *Identity {
	tb.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate RSA key: %v", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		tb.Fatalf("failed to generate serial: %v", err)
	}
	serial.Add(serial, big.NewInt(1))

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"opencce test"},
			CommonName:   commonName,
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
		BasicConstraintsValid: true,
		IsCA:                  ca == nil,
	}

	parent, signer := template, key
	if ca != nil {
		parent, signer = ca.Certificate, ca.Key
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, signer)
	if err != nil {
		tb.Fatalf("failed to create certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		tb.Fatalf("failed to parse certificate: %v", err)
	}

	return &Identity{Certificate: cert, Key: key}
}

// CertificateDER returns the DER encoding of the certificate.
func (id *Identity) CertificateDER() []byte {
	return id.Certificate.Raw
}

// CertificatePEM returns the certificate as a PEM CERTIFICATE block.
func (id *Identity) CertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: id.Certificate.Raw})
}

// PKCS1PEM returns the key as an unencrypted RSA PRIVATE KEY block.
func (id *Identity) PKCS1PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(id.Key)})
}

// PKCS8PEM returns the key as an unencrypted PRIVATE KEY block.
func (id *Identity) PKCS8PEM(tb testing.TB) []byte {
	tb.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(id.Key)
	if err != nil {
		tb.Fatalf("failed to marshal PKCS#8 key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// EncryptedPKCS8PEM returns the key as an ENCRYPTED PRIVATE KEY block.
func (id *Identity) EncryptedPKCS8PEM(tb testing.TB, passphrase []byte) []byte {
	tb.Helper()
	der, err := pkcs8.MarshalPrivateKey(id.Key, passphrase, nil)
	if err != nil {
		tb.Fatalf("failed to marshal encrypted PKCS#8 key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})
}

// LegacyEncryptedPEM returns the key as an RSA PRIVATE KEY block with
// Proc-Type/DEK-Info headers, the format written by `openssl rsa -aes256`.
func (id *Identity) LegacyEncryptedPEM(tb testing.TB, passphrase []byte) []byte {
	tb.Helper()
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(id.Key), passphrase, x509.PEMCipherAES256)
	if err != nil {
		tb.Fatalf("failed to encrypt PEM block: %v", err)
	}
	return pem.EncodeToMemory(block)
}

// OpenSSHPEM returns the key in OpenSSH format, protected when passphrase is non-empty.
func (id *Identity) OpenSSHPEM(tb testing.TB, passphrase []byte) []byte {
	tb.Helper()
	var (
		block *pem.Block
		err   error
	)
	if len(passphrase) > 0 {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(id.Key, "", passphrase)
	} else {
		block, err = ssh.MarshalPrivateKey(id.Key, "")
	}
	if err != nil {
		tb.Fatalf("failed to marshal OpenSSH key: %v", err)
	}
	return pem.EncodeToMemory(block)
}

// WriteFile writes data to name inside dir and returns the full path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		tb.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		tb.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
