package certstore

import (
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"

	kerrors "github.com/privatwolke/opencce/internal/errors"
)

// Certificate wraps a parsed X.509 certificate. Its identity is the SHA-1
// fingerprint of the DER encoding.
type Certificate struct {
	cert        *x509.Certificate
	fingerprint string
}

// NewCertificate wraps an already parsed certificate.
func NewCertificate(cert *x509.Certificate) *Certificate {
	sum := sha1.Sum(cert.Raw)
	return &Certificate{
		cert:        cert,
		fingerprint: strings.ToUpper(hex.EncodeToString(sum[:])),
	}
}

// ParseCertificate parses a DER encoded certificate, falling back to PEM.
// Only the first CERTIFICATE block of PEM input is used.
func ParseCertificate(data []byte) (*Certificate, error) {
	certs, err := parseCertificates(data)
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}

// parseCertificates returns every certificate in data: one for DER input,
// one per CERTIFICATE block for PEM input.
func parseCertificates(data []byte) ([]*Certificate, error) {
	if cert, err := x509.ParseCertificate(data); err == nil {
		return []*Certificate{NewCertificate(cert)}, nil
	}

	var (
		certs   []*Certificate
		lastErr error
	)
	rest := data
	for {
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
			lastErr = err
			continue
		}
		certs = append(certs, NewCertificate(cert))
	}

	if len(certs) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrUnrecognizedCertificate, lastErr)
		}
		return nil, kerrors.ErrUnrecognizedCertificate
	}
	return certs, nil
}

// Fingerprint returns the uppercase hex SHA-1 fingerprint.
func (c *Certificate) Fingerprint() string {
	return c.fingerprint
}

func (c *Certificate) SubjectCommonName() string {
	return c.cert.Subject.CommonName
}

func (c *Certificate) IssuerCommonName() string {
	return c.cert.Issuer.CommonName
}

// FriendlyName is the label shown for the certificate by CCE readers.
func (c *Certificate) FriendlyName() string {
	return fmt.Sprintf("%s (%s)", c.SubjectCommonName(), c.IssuerCommonName())
}

// DER returns the raw DER encoding.
func (c *Certificate) DER() []byte {
	return c.cert.Raw
}

// PEM returns the certificate as a PEM CERTIFICATE block.
func (c *Certificate) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.cert.Raw})
}

// PEMBody returns the base64 lines of the PEM encoding without the
// BEGIN/END delimiters.
func (c *Certificate) PEMBody() string {
	lines := strings.Split(strings.TrimSpace(string(c.PEM())), "\n")
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// X509 returns the underlying certificate.
func (c *Certificate) X509() *x509.Certificate {
	return c.cert
}
