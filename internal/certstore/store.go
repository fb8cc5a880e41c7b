package certstore

import (
	"crypto/x509"
	"fmt"
	"os"

	kerrors "github.com/privatwolke/opencce/internal/errors"
)

// Store is a set of certificates keyed by fingerprint. Iteration follows
// insertion order so that serialized archives are reproducible.
type Store struct {
	byFingerprint map[string]*Certificate
	order         []string
}

// New returns an empty store.
func New() *Store {
	return &Store{byFingerprint: make(map[string]*Certificate)}
}

// Add parses DER or PEM encoded certificate bytes and inserts the result.
// PEM input may hold several CERTIFICATE blocks; all are inserted and the
// first is returned. Adding a certificate that is already present is a no-op.
func (s *Store) Add(data []byte) (*Certificate, error) {
	certs, err := parseCertificates(data)
	if err != nil {
		return nil, err
	}
	for _, c := range certs {
		s.Insert(c)
	}
	return s.byFingerprint[certs[0].Fingerprint()], nil
}

// AddFromFile reads path and delegates to Add.
func (s *Store) AddFromFile(path string) (*Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading certificate %s: %v", kerrors.ErrIO, path, err)
	}

	cert, err := s.Add(data)
	if err != nil {
		return nil, fmt.Errorf("loading certificate %s: %w", path, err)
	}
	return cert, nil
}

// Insert adds c unless a certificate with the same fingerprint is present.
// Reports whether the store changed.
func (s *Store) Insert(c *Certificate) bool {
	if _, ok := s.byFingerprint[c.Fingerprint()]; ok {
		return false
	}
	s.byFingerprint[c.Fingerprint()] = c
	s.order = append(s.order, c.Fingerprint())
	return true
}

// Get returns the certificate with the given fingerprint.
func (s *Store) Get(fingerprint string) (*Certificate, bool) {
	c, ok := s.byFingerprint[fingerprint]
	return c, ok
}

func (s *Store) Len() int {
	return len(s.order)
}

// Certificates returns the certificates in insertion order.
func (s *Store) Certificates() []*Certificate {
	certs := make([]*Certificate, len(s.order))
	for i, fp := range s.order {
		certs[i] = s.byFingerprint[fp]
	}
	return certs
}

// X509Certificates returns the parsed certificates, for use as envelope recipients.
func (s *Store) X509Certificates() []*x509.Certificate {
	certs := make([]*x509.Certificate, len(s.order))
	for i, fp := range s.order {
		certs[i] = s.byFingerprint[fp].X509()
	}
	return certs
}

// Fingerprints returns the fingerprints in insertion order.
func (s *Store) Fingerprints() []string {
	return append([]string(nil), s.order...)
}
