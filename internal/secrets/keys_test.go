package secrets

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"

	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/testkit"
)

func TestLoadPrivateKey_Formats(t *testing.T) {
	id := testkit.NewIdentity(t, "alice")
	passphrase := []byte("correct horse")

	tests := []struct {
		name      string
		data      []byte
		protected bool
	}{
		{"PKCS1", id.PKCS1PEM(), false},
		{"PKCS8", id.PKCS8PEM(t), false},
		{"EncryptedPKCS8", id.EncryptedPKCS8PEM(t, passphrase), true},
		{"LegacyEncrypted", id.LegacyEncryptedPEM(t, passphrase), true},
		{"OpenSSH", id.OpenSSHPEM(t, nil), false},
		{"OpenSSHProtected", id.OpenSSHPEM(t, passphrase), true},
		{"DERPKCS1", x509.MarshalPKCS1PrivateKey(id.Key), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			provider := func() ([]byte, error) {
				calls++
				return passphrase, nil
			}

			material, err := LoadPrivateKey(tt.data, provider)
			if err != nil {
				t.Fatalf("LoadPrivateKey failed: %v", err)
			}
			if !material.Key.Equal(id.Key) {
				t.Error("loaded key does not match original")
			}

			wantCalls := 0
			if tt.protected {
				wantCalls = 1
			}
			if calls != wantCalls {
				t.Errorf("passphrase provider called %d times, want %d", calls, wantCalls)
			}
		})
	}
}

func TestLoadPrivateKey_MissingPassphrase(t *testing.T) {
	id := testkit.NewIdentity(t, "alice")

	for name, data := range map[string][]byte{
		"EncryptedPKCS8":   id.EncryptedPKCS8PEM(t, []byte("secret")),
		"LegacyEncrypted":  id.LegacyEncryptedPEM(t, []byte("secret")),
		"OpenSSHProtected": id.OpenSSHPEM(t, []byte("secret")),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPrivateKey(data, nil)
			if !errors.Is(err, ErrPassphraseRequired) {
				t.Errorf("expected ErrPassphraseRequired, got: %v", err)
			}
			if !errors.Is(err, kerrors.ErrKeyLoadFailed) {
				t.Errorf("expected ErrKeyLoadFailed, got: %v", err)
			}
		})
	}
}

func TestLoadPrivateKey_WrongPassphrase(t *testing.T) {
	id := testkit.NewIdentity(t, "alice")
	wrong := StaticPassphrase([]byte("wrong"))

	for name, data := range map[string][]byte{
		"EncryptedPKCS8":   id.EncryptedPKCS8PEM(t, []byte("secret")),
		"OpenSSHProtected": id.OpenSSHPEM(t, []byte("secret")),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPrivateKey(data, wrong)
			if err == nil {
				t.Fatal("expected error with wrong passphrase")
			}
			if !errors.Is(err, kerrors.ErrKeyLoadFailed) {
				t.Errorf("expected ErrKeyLoadFailed, got: %v", err)
			}
		})
	}
}

func TestLoadPrivateKey_ProviderError(t *testing.T) {
	id := testkit.NewIdentity(t, "alice")
	failing := func() ([]byte, error) { return nil, errors.New("no terminal") }

	_, err := LoadPrivateKey(id.EncryptedPKCS8PEM(t, []byte("secret")), failing)
	if !errors.Is(err, kerrors.ErrKeyLoadFailed) {
		t.Errorf("expected ErrKeyLoadFailed, got: %v", err)
	}
}

func TestLoadPrivateKey_NonRSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate ECDSA key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal key: %v", err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	_, err = LoadPrivateKey(data, nil)
	if !errors.Is(err, kerrors.ErrKeyLoadFailed) {
		t.Errorf("expected ErrKeyLoadFailed for ECDSA key, got: %v", err)
	}
}

func TestLoadPrivateKey_Garbage(t *testing.T) {
	_, err := LoadPrivateKey([]byte("not a key"), nil)
	if !errors.Is(err, kerrors.ErrKeyLoadFailed) {
		t.Errorf("expected ErrKeyLoadFailed, got: %v", err)
	}
}

func TestLoadPrivateKey_BundledCertificate(t *testing.T) {
	ca := testkit.NewIdentity(t, "Test CA")
	alice := ca.Issue(t, "alice")

	var bundle []byte
	bundle = append(bundle, ca.CertificatePEM()...)
	bundle = append(bundle, alice.PKCS1PEM()...)
	bundle = append(bundle, alice.CertificatePEM()...)

	material, err := LoadPrivateKey(bundle, nil)
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	if len(material.Certificates) != 2 {
		t.Fatalf("expected 2 bundled certificates, got %d", len(material.Certificates))
	}

	match := material.MatchingCertificate()
	if match == nil {
		t.Fatal("expected a matching certificate")
	}
	if !match.Equal(alice.Certificate) {
		t.Errorf("matched %q, want alice", match.Subject.CommonName)
	}
}

func TestKeyMaterial_NoMatchingCertificate(t *testing.T) {
	alice := testkit.NewIdentity(t, "alice")
	bob := testkit.NewIdentity(t, "bob")

	material := &KeyMaterial{Key: alice.Key, Certificates: []*x509.Certificate{bob.Certificate}}
	if material.MatchingCertificate() != nil {
		t.Error("expected no matching certificate")
	}
}

func TestLoadPrivateKeyFile(t *testing.T) {
	dir := t.TempDir()
	id := testkit.NewIdentity(t, "alice")
	path := testkit.WriteFile(t, dir, "alice.key", id.PKCS8PEM(t))

	material, err := LoadPrivateKeyFile(path, nil)
	if err != nil {
		t.Fatalf("LoadPrivateKeyFile failed: %v", err)
	}
	if !material.Key.Equal(id.Key) {
		t.Error("loaded key does not match original")
	}

	_, err = LoadPrivateKeyFile(filepath.Join(dir, "missing.key"), nil)
	if !errors.Is(err, kerrors.ErrKeyLoadFailed) {
		t.Errorf("expected ErrKeyLoadFailed for missing file, got: %v", err)
	}
}

func TestParseOpenSSHPrivateKey_PassphraseProtected(t *testing.T) {
	id := testkit.NewIdentity(t, "alice")
	passphrase := []byte("test-passphrase-123")
	pemBytes := id.OpenSSHPEM(t, passphrase)

	// Without a passphrase the caller must be told to ask for one.
	_, err := parseOpenSSHPrivateKey(pemBytes, nil)
	if !errors.Is(err, ErrPassphraseRequired) {
		t.Errorf("expected ErrPassphraseRequired, got: %v", err)
	}

	parsed, err := parseOpenSSHPrivateKey(pemBytes, passphrase)
	if err != nil {
		t.Fatalf("parseOpenSSHPrivateKey with correct passphrase failed: %v", err)
	}
	if parsed.N.Cmp(id.Key.N) != 0 {
		t.Error("parsed key modulus does not match original")
	}
}

func TestParseOpenSSHPrivateKey_NonRSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate ECDSA key: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(key, "")
	if err != nil {
		t.Fatalf("failed to marshal private key: %v", err)
	}

	_, err = parseOpenSSHPrivateKey(pem.EncodeToMemory(block), nil)
	if err == nil {
		t.Fatal("expected error for non-RSA OpenSSH key")
	}
}

func TestKeyFileTooPermissive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, loose := KeyFileTooPermissive(path); loose {
		t.Error("0600 should not be reported as too permissive")
	}

	if err := os.Chmod(path, 0644); err != nil {
		t.Fatalf("failed to chmod: %v", err)
	}
	mode, loose := KeyFileTooPermissive(path)
	if !loose {
		t.Error("0644 should be reported as too permissive")
	}
	if mode != 0644 {
		t.Errorf("expected mode 0644, got %o", mode)
	}

	if _, loose := KeyFileTooPermissive(filepath.Join(dir, "missing")); loose {
		t.Error("missing file should not be reported")
	}
}
