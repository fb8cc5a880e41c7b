// Package secrets loads recipient private keys and resolves input files.
//
// # Private Keys
//
// Containers are opened with an RSA private key. LoadPrivateKey accepts the
// formats people actually keep on disk:
//
//   - PKCS#1 "RSA PRIVATE KEY", optionally with legacy OpenSSL encryption
//   - PKCS#8 "PRIVATE KEY" and "ENCRYPTED PRIVATE KEY"
//   - OpenSSH "OPENSSH PRIVATE KEY", optionally passphrase-protected
//   - raw DER in PKCS#1 or PKCS#8 form
//
// A PassphraseProvider is consulted only when the key is protected. Any
// CERTIFICATE blocks in the same file are returned alongside the key, so a
// combined key-and-certificate PEM identifies the recipient directly.
//
// Private keys should have 0600 permissions. KeyFileTooPermissive lets
// callers warn about looser modes without refusing to proceed.
//
// # Input Files
//
// ResolveFiles expands the paths given on the command line into container
// members. Directories keep their hierarchy, globs support "**".
package secrets
