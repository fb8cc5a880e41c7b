// Package message converts container contents to and from the multipart/mixed
// message that is sealed inside a CCE envelope.
//
// Every member becomes one base64 part with
//
//	Content-Disposition: attachment; filename="/docs/notes.txt"
//
// and a Content-Type sniffed from its first bytes, carrying the same name
// parameter. The certificate store archive is always the final part, named
// RecipientCertificates.xml.zip with type application/zip.
package message
