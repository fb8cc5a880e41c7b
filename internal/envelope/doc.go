// Package envelope seals container messages into S/MIME enveloped-data and
// opens them again.
//
// Seal encrypts a message with a random content key under the chosen AES-CBC
// cipher and wraps that key for every recipient certificate with RSA
// PKCS#1 v1.5 key transport. The resulting CMS structure is written as a
// textual S/MIME entity named smime.p7m, which is the file format CCE
// readers exchange.
//
// Unseal needs only the recipient's private key. When the key file also
// holds the matching certificate, that certificate selects the recipient
// directly. Otherwise each recipient in the envelope is tried in turn.
package envelope
