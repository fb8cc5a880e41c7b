package secrets

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/ssh"

	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/utils"
)

// ErrPassphraseRequired is returned when a key is protected and no passphrase was supplied.
var ErrPassphraseRequired = errors.New("private key is passphrase-protected")

// PassphraseProvider yields the passphrase for a protected key. It is only
// called when the key actually needs one.
type PassphraseProvider func() ([]byte, error)

// StaticPassphrase returns a provider that always yields passphrase.
func StaticPassphrase(passphrase []byte) PassphraseProvider {
	return func() ([]byte, error) {
		return passphrase, nil
	}
}

// TerminalPassphrase returns a provider that prompts on the terminal.
func TerminalPassphrase(prompt string) PassphraseProvider {
	return func() ([]byte, error) {
		return utils.PromptPassphrase(prompt)
	}
}

// KeyMaterial is a loaded private key plus any certificates stored in the
// same file.
type KeyMaterial struct {
	Key          *rsa.PrivateKey
	Certificates []*x509.Certificate
}

// MatchingCertificate returns the bundled certificate whose public key
// belongs to Key, or nil.
func (k *KeyMaterial) MatchingCertificate() *x509.Certificate {
	for _, cert := range k.Certificates {
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if ok && k.Key.PublicKey.Equal(pub) {
			return cert
		}
	}
	return nil
}

// LoadPrivateKeyFile reads path and delegates to LoadPrivateKey.
func LoadPrivateKeyFile(path string, provider PassphraseProvider) (*KeyMaterial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", kerrors.ErrKeyLoadFailed, path, err)
	}
	return LoadPrivateKey(data, provider)
}

// LoadPrivateKey parses an RSA private key in PKCS#1, PKCS#8, encrypted
// PKCS#8, legacy encrypted PEM, OpenSSH or raw DER form. CERTIFICATE blocks
// next to the key are collected as well.
func LoadPrivateKey(data []byte, provider PassphraseProvider) (*KeyMaterial, error) {
	material := &KeyMaterial{}

	var keyBlock *pem.Block
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: bundled certificate: %v", kerrors.ErrKeyLoadFailed, err)
			}
			material.Certificates = append(material.Certificates, cert)
		case "RSA PRIVATE KEY", "PRIVATE KEY", "ENCRYPTED PRIVATE KEY", "OPENSSH PRIVATE KEY":
			if keyBlock == nil {
				keyBlock = block
			}
		}
	}

	var (
		key *rsa.PrivateKey
		err error
	)
	if keyBlock == nil {
		key, err = parseDERPrivateKey(data)
	} else {
		key, err = parsePEMPrivateKey(keyBlock, provider)
	}
	if err != nil {
		return nil, err
	}

	material.Key = key
	return material, nil
}

func parsePEMPrivateKey(block *pem.Block, provider PassphraseProvider) (*rsa.PrivateKey, error) {
	switch block.Type {
	case "RSA PRIVATE KEY":
		der := block.Bytes
		// Legacy OpenSSL encryption (Proc-Type: 4,ENCRYPTED).
		if x509.IsEncryptedPEMBlock(block) {
			passphrase, err := askPassphrase(provider)
			if err != nil {
				return nil, err
			}
			der, err = x509.DecryptPEMBlock(block, passphrase)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", kerrors.ErrKeyLoadFailed, err)
			}
		}
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrKeyLoadFailed, err)
		}
		return key, nil

	case "PRIVATE KEY":
		return parsePKCS8(block.Bytes)

	case "ENCRYPTED PRIVATE KEY":
		passphrase, err := askPassphrase(provider)
		if err != nil {
			return nil, err
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, passphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrKeyLoadFailed, err)
		}
		return key, nil

	case "OPENSSH PRIVATE KEY":
		encoded := pem.EncodeToMemory(block)
		key, err := parseOpenSSHPrivateKey(encoded, nil)
		if errors.Is(err, ErrPassphraseRequired) {
			passphrase, perr := askPassphrase(provider)
			if perr != nil {
				return nil, perr
			}
			key, err = parseOpenSSHPrivateKey(encoded, passphrase)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrKeyLoadFailed, err)
		}
		return key, nil
	}

	return nil, fmt.Errorf("%w: unsupported PEM block %q", kerrors.ErrKeyLoadFailed, block.Type)
}

// parseOpenSSHPrivateKey parses an OpenSSH private key. A nil or empty
// passphrase on a protected key yields ErrPassphraseRequired.
func parseOpenSSHPrivateKey(data []byte, passphrase []byte) (*rsa.PrivateKey, error) {
	var (
		raw interface{}
		err error
	)
	if len(passphrase) == 0 {
		raw, err = ssh.ParseRawPrivateKey(data)
	} else {
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(data, passphrase)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, ErrPassphraseRequired
		}
		return nil, fmt.Errorf("failed to parse OpenSSH private key: %w", err)
	}

	key, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unsupported key type %T: only RSA keys can open containers", raw)
	}
	return key, nil
}

func parseDERPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	key, err := parsePKCS8(der)
	if err != nil {
		return nil, fmt.Errorf("%w: no private key found", kerrors.ErrKeyLoadFailed)
	}
	return key, nil
}

func parsePKCS8(der []byte) (*rsa.PrivateKey, error) {
	raw, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrKeyLoadFailed, err)
	}
	key, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported key type %T: only RSA keys can open containers", kerrors.ErrKeyLoadFailed, raw)
	}
	return key, nil
}

func askPassphrase(provider PassphraseProvider) ([]byte, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrKeyLoadFailed, ErrPassphraseRequired)
	}
	passphrase, err := provider()
	if err != nil {
		return nil, fmt.Errorf("%w: reading passphrase: %v", kerrors.ErrKeyLoadFailed, err)
	}
	return passphrase, nil
}

// KeyFileTooPermissive reports the file mode of path when group or other
// users can read it.
func KeyFileTooPermissive(path string) (os.FileMode, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	perm := info.Mode().Perm()
	return perm, perm&0077 != 0
}
