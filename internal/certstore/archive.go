package certstore

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	kerrors "github.com/privatwolke/opencce/internal/errors"
)

const (
	// Namespace of the XMLCertificateStore root element.
	Namespace = "http://www.a-sit.at/2006/12/09/XMLCertificateStore"

	// EntryName is the single entry inside the archive.
	EntryName = "CertificateStore"

	// ArchiveName is the attachment name of the archive inside a container.
	ArchiveName = "RecipientCertificates.xml.zip"

	// GroupName is the group every certificate is filed under.
	GroupName = "opencce certificates"

	StoreFriendlyName = "opencce store"

	rootTag      = "XMLCertificateStore"
	namespaceTag = "certStore"
	maxEntrySize = 64 << 20
)

// entryModified is the fixed modification time of the archive entry.
var entryModified = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Compression selects how the archive entry is written.
type Compression int

const (
	CompressionDefault Compression = iota
	CompressionBest
	CompressionNone
)

// Serialize writes the store as a deflated XML-in-zip archive.
func (s *Store) Serialize() ([]byte, error) {
	return s.SerializeWithCompression(CompressionDefault)
}

// SerializeWithCompression writes the store as an XML-in-zip archive with
// exactly one entry.
func (s *Store) SerializeWithCompression(c Compression) ([]byte, error) {
	document, err := s.document().WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode certificate store: %w", err)
	}

	method := zip.Deflate
	level := flate.DefaultCompression
	switch c {
	case CompressionBest:
		level = flate.BestCompression
	case CompressionNone:
		method = zip.Store
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     EntryName,
		Method:   method,
		Modified: entryModified,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create archive entry: %w", err)
	}
	if _, err := w.Write(document); err != nil {
		return nil, fmt.Errorf("failed to write archive entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	return buf.Bytes(), nil
}

// document builds the XMLCertificateStore tree. Every configuration element
// is required by CCE readers; GroupSeperator is spelled the way they expect.
func (s *Store) document() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version='1.0' encoding='utf-8'`)
	doc.CreateCharData("\n")

	root := doc.CreateElement(namespaceTag + ":" + rootTag)
	root.CreateAttr("xmlns:"+namespaceTag, Namespace)

	config := root.CreateElement("CertificateStoreConfiguration")
	config.CreateElement("FriendlyName").SetText(StoreFriendlyName)
	config.CreateElement("GroupSeperator").SetText("/")
	config.CreateElement("Expanded").SetText("true")
	group := config.CreateElement("GroupInformation").CreateElement("Group")
	group.CreateElement("GroupName").SetText(GroupName)
	group.CreateElement("Expanded").SetText("true")

	for _, cert := range s.Certificates() {
		el := root.CreateElement("X509Certificate")
		el.CreateElement("ID").SetText(cert.Fingerprint())
		el.CreateElement("Type").SetText("0")
		el.CreateElement("EncodedX509Certificate").SetText(cert.PEMBody())
		group := el.CreateElement("GroupInformation").CreateElement("Group")
		group.CreateElement("GroupName").SetText(GroupName)
		group.CreateElement("FriendlyName").SetText(cert.FriendlyName())
	}

	return doc
}

// Parse reconstructs a store from an archive produced by Serialize or by a
// CCE reader. Both deflated and stored entries are accepted.
func Parse(data []byte) (*Store, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidArchive, err)
	}

	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == EntryName {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, kerrors.ErrMissingStoreEntry
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidArchive, err)
	}
	defer rc.Close()

	xmlData, err := io.ReadAll(io.LimitReader(rc, maxEntrySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidArchive, err)
	}

	return parseDocument(xmlData)
}

func parseDocument(data []byte) (*Store, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidStoreDocument, err)
	}

	root := doc.Root()
	if root == nil || root.Tag != rootTag {
		return nil, fmt.Errorf("%w: missing %s root element", kerrors.ErrInvalidStoreDocument, rootTag)
	}

	store := New()
	for i, el := range root.SelectElements("X509Certificate") {
		encoded := el.SelectElement("EncodedX509Certificate")
		if encoded == nil {
			return nil, fmt.Errorf("%w: certificate %d has no EncodedX509Certificate", kerrors.ErrInvalidStoreDocument, i)
		}

		block := "-----BEGIN CERTIFICATE-----\n" +
			strings.TrimSpace(encoded.Text()) +
			"\n-----END CERTIFICATE-----\n"
		if _, err := store.Add([]byte(block)); err != nil {
			return nil, fmt.Errorf("certificate %d: %w", i, err)
		}
	}

	return store, nil
}
