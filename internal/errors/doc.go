// Package errors provides typed error values for opencce.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
// Every error belongs to one of five categories, and each specific error
// wraps its category:
//
//   - ErrFormat: malformed input (ErrUnrecognizedCertificate, ErrMalformedMessage)
//   - ErrPath: missing or conflicting files (ErrFileNotFound, ErrDuplicateMember)
//   - ErrConfiguration: invalid requests (ErrNoRecipients, ErrUnknownCipher)
//   - ErrCrypto: key and decryption failures (ErrKeyLoadFailed, ErrDecryptionFailed)
//   - ErrIO: read and write failures on valid paths
//
// # Usage
//
// Return errors from internal packages, adding context with %w:
//
//	return nil, fmt.Errorf("%w: %v", kerrors.ErrKeyLoadFailed, err)
//
// Handle errors in the CLI layer by category or by specific error:
//
//	if errors.Is(err, kerrors.ErrCrypto) {
//	    // Show user-friendly message
//	}
package errors
