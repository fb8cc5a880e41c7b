package errors

import (
	"errors"
	"fmt"
)

// Category errors. Every specific error below wraps exactly one of these, so
// callers can match a whole class of failures with errors.Is().
var (
	// ErrFormat indicates input bytes are not in the expected encoding or structure.
	ErrFormat = errors.New("format error")

	// ErrPath indicates a filesystem path is missing, of the wrong type or already taken.
	ErrPath = errors.New("path error")

	// ErrConfiguration indicates the caller asked for something that cannot be done as configured.
	ErrConfiguration = errors.New("configuration error")

	// ErrCrypto indicates a key could not be loaded or content could not be decrypted.
	ErrCrypto = errors.New("crypto error")

	// ErrIO indicates a read or write on an otherwise valid path failed.
	ErrIO = errors.New("io error")
)

// Format errors indicate malformed certificates, archives, messages or envelopes.
var (
	// ErrUnrecognizedCertificate indicates bytes are neither DER nor PEM encoded certificates.
	ErrUnrecognizedCertificate = fmt.Errorf("%w: unrecognized certificate encoding", ErrFormat)

	// ErrInvalidArchive indicates the certificate store archive could not be opened.
	ErrInvalidArchive = fmt.Errorf("%w: invalid certificate store archive", ErrFormat)

	// ErrMissingStoreEntry indicates the archive has no CertificateStore entry.
	ErrMissingStoreEntry = fmt.Errorf("%w: certificate store entry not found", ErrFormat)

	// ErrInvalidStoreDocument indicates the certificate store XML is malformed or incomplete.
	ErrInvalidStoreDocument = fmt.Errorf("%w: invalid certificate store document", ErrFormat)

	// ErrMalformedMessage indicates the payload is not a well-formed multipart message.
	ErrMalformedMessage = fmt.Errorf("%w: malformed multipart message", ErrFormat)

	// ErrInvalidEnvelope indicates the container is not a valid S/MIME enveloped-data structure.
	ErrInvalidEnvelope = fmt.Errorf("%w: invalid envelope", ErrFormat)
)

// Path errors indicate issues with files being added or written.
var (
	// ErrFileNotFound indicates a specific file could not be located.
	ErrFileNotFound = fmt.Errorf("%w: file not found", ErrPath)

	// ErrNotRegularFile indicates the path exists but is a directory or special file.
	ErrNotRegularFile = fmt.Errorf("%w: not a regular file", ErrPath)

	// ErrDuplicateMember indicates a member with the same directory and name already exists.
	ErrDuplicateMember = fmt.Errorf("%w: duplicate container member", ErrPath)

	// ErrReservedName indicates a member would shadow the embedded certificate archive.
	ErrReservedName = fmt.Errorf("%w: reserved member name", ErrPath)

	// ErrOutputExists indicates the output file exists and overwriting was not requested.
	ErrOutputExists = fmt.Errorf("%w: output file already exists", ErrPath)

	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = fmt.Errorf("%w: no matching files found", ErrPath)

	// ErrUnknownAlias indicates an identifier is neither a file nor a configured alias.
	ErrUnknownAlias = fmt.Errorf("%w: not a file or known alias", ErrPath)
)

// Configuration errors indicate invalid requests.
var (
	// ErrNoRecipients indicates an envelope was requested without any recipient certificate.
	ErrNoRecipients = fmt.Errorf("%w: no recipient certificates", ErrConfiguration)

	// ErrUnknownCipher indicates the cipher name is not supported.
	ErrUnknownCipher = fmt.Errorf("%w: unknown cipher", ErrConfiguration)
)

// Cryptographic errors indicate failures during key loading or decryption.
var (
	// ErrKeyLoadFailed indicates the private key is malformed, unsupported or the passphrase is wrong.
	ErrKeyLoadFailed = fmt.Errorf("%w: key load failed", ErrCrypto)

	// ErrDecryptionFailed indicates no recipient matched the key or the content did not decrypt.
	ErrDecryptionFailed = fmt.Errorf("%w: decryption failed", ErrCrypto)

	// ErrEncryptionFailed indicates the envelope could not be produced.
	ErrEncryptionFailed = fmt.Errorf("%w: encryption failed", ErrCrypto)
)
