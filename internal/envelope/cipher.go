package envelope

import (
	"crypto/x509"
	"fmt"
	"sort"
	"sync"

	"github.com/smallstep/pkcs7"

	kerrors "github.com/privatwolke/opencce/internal/errors"
)

// DefaultCipher is used when no cipher is named.
const DefaultCipher = "aes_256_cbc"

var ciphers = map[string]int{
	"aes_128_cbc": pkcs7.EncryptionAlgorithmAES128CBC,
	"aes_256_cbc": pkcs7.EncryptionAlgorithmAES256CBC,
}

// pkcs7 selects the content cipher through a package variable.
var cipherMu sync.Mutex

// Ciphers returns the supported cipher names.
func Ciphers() []string {
	names := make([]string, 0, len(ciphers))
	for name := range ciphers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateCipher returns ErrUnknownCipher unless name is supported. The
// empty name selects DefaultCipher.
func ValidateCipher(name string) error {
	_, err := lookupCipher(name)
	return err
}

func lookupCipher(name string) (int, error) {
	if name == "" {
		name = DefaultCipher
	}
	alg, ok := ciphers[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q (supported: %v)", kerrors.ErrUnknownCipher, name, Ciphers())
	}
	return alg, nil
}

func encryptWith(alg int, content []byte, recipients []*x509.Certificate) ([]byte, error) {
	cipherMu.Lock()
	defer cipherMu.Unlock()

	previous := pkcs7.ContentEncryptionAlgorithm
	pkcs7.ContentEncryptionAlgorithm = alg
	defer func() { pkcs7.ContentEncryptionAlgorithm = previous }()

	return pkcs7.Encrypt(content, recipients)
}
