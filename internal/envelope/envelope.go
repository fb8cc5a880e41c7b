package envelope

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"

	"github.com/smallstep/pkcs7"

	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/secrets"
)

// Seal encrypts message for every recipient and returns the S/MIME entity.
// The empty cipher name selects DefaultCipher.
func Seal(message []byte, recipients []*x509.Certificate, cipher string) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, kerrors.ErrNoRecipients
	}

	alg, err := lookupCipher(cipher)
	if err != nil {
		return nil, err
	}

	der, err := encryptWith(alg, message, recipients)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrEncryptionFailed, err)
	}

	return writeSMIME(der)
}

// Unseal loads the private key in keyData and decrypts envelope with it.
// provider is only called when the key is passphrase-protected.
func Unseal(envelope, keyData []byte, provider secrets.PassphraseProvider) ([]byte, error) {
	material, err := secrets.LoadPrivateKey(keyData, provider)
	if err != nil {
		return nil, err
	}
	return UnsealWithKey(envelope, material)
}

// UnsealWithKey decrypts envelope with an already loaded key.
func UnsealWithKey(envelope []byte, material *secrets.KeyMaterial) ([]byte, error) {
	der, err := readSMIME(envelope)
	if err != nil {
		return nil, err
	}

	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidEnvelope, err)
	}

	if cert := material.MatchingCertificate(); cert != nil {
		content, err := p7.Decrypt(cert, material.Key)
		if err == nil {
			return content, nil
		}
	}

	// The envelope already parsed, so a listing failure is reported as a
	// failed decryption rather than as malformed input.
	candidates, err := Recipients(der)
	if err != nil {
		return nil, fmt.Errorf("%w: listing recipients: %v", kerrors.ErrDecryptionFailed, err)
	}

	var lastErr error
	for _, candidate := range candidates {
		content, err := p7.Decrypt(candidate.stub(), material.Key)
		if err == nil {
			return content, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no recipient matches the key")
	}
	return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryptionFailed, lastErr)
}

// Recipient identifies one RecipientInfo of an envelope.
type Recipient struct {
	RawIssuer    []byte
	SerialNumber *big.Int
}

// Issuer returns the decoded issuer name, or an empty name if it does not parse.
func (r Recipient) Issuer() pkix.Name {
	var seq pkix.RDNSequence
	var name pkix.Name
	if _, err := asn1.Unmarshal(r.RawIssuer, &seq); err == nil {
		name.FillFromRDNSequence(&seq)
	}
	return name
}

// stub is a certificate carrying only what recipient selection compares.
func (r Recipient) stub() *x509.Certificate {
	return &x509.Certificate{SerialNumber: r.SerialNumber, RawIssuer: r.RawIssuer}
}

type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

type envelopedData struct {
	Version              int
	RecipientInfos       []recipientInfo `asn1:"set"`
	EncryptedContentInfo asn1.RawValue
}

type recipientInfo struct {
	Version                int
	IssuerAndSerialNumber  issuerAndSerial
	KeyEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedKey           []byte
}

type issuerAndSerial struct {
	IssuerName   asn1.RawValue
	SerialNumber *big.Int
}

var oidEnvelopedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 3}

// Recipients lists the RecipientInfos of DER or BER encoded enveloped-data,
// including the indefinite-length form written by streaming encoders.
func Recipients(data []byte) ([]Recipient, error) {
	der, err := normalizeBER(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidEnvelope, err)
	}

	var info contentInfo
	if _, err := asn1.Unmarshal(der, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidEnvelope, err)
	}
	if !info.ContentType.Equal(oidEnvelopedData) {
		return nil, fmt.Errorf("%w: content type %s is not enveloped-data", kerrors.ErrInvalidEnvelope, info.ContentType)
	}

	var ed envelopedData
	if _, err := asn1.Unmarshal(info.Content.Bytes, &ed); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidEnvelope, err)
	}

	recipients := make([]Recipient, 0, len(ed.RecipientInfos))
	for _, ri := range ed.RecipientInfos {
		recipients = append(recipients, Recipient{
			RawIssuer:    ri.IssuerAndSerialNumber.IssuerName.FullBytes,
			SerialNumber: ri.IssuerAndSerialNumber.SerialNumber,
		})
	}
	return recipients, nil
}

// EnvelopeRecipients lists the recipients of a sealed S/MIME entity without
// decrypting it.
func EnvelopeRecipients(envelope []byte) ([]Recipient, error) {
	der, err := readSMIME(envelope)
	if err != nil {
		return nil, err
	}
	return Recipients(der)
}
