package message

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"

	"github.com/privatwolke/opencce/internal/certstore"
	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/member"
	"github.com/privatwolke/opencce/internal/utils"
)

const (
	// ArchiveContentType is the type of the embedded certificate store part.
	ArchiveContentType = "application/zip"

	lineLength = 76
	crlf       = "\r\n"
)

// Assembler converts between container contents and a multipart/mixed message.
type Assembler struct {
	Sniffer Sniffer
}

// NewAssembler returns an Assembler using sniffer, or MagicSniffer when nil.
func NewAssembler(sniffer Sniffer) *Assembler {
	if sniffer == nil {
		sniffer = MagicSniffer{}
	}
	return &Assembler{Sniffer: sniffer}
}

// Assemble builds a multipart/mixed message with one base64 part per member
// followed by the certificate archive as the final part. Member streams are
// left rewound.
func (a *Assembler) Assemble(members []*member.Member, certificateArchive []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	boundary := generateBoundary()
	if err := mw.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("failed to set boundary: %w", err)
	}

	for _, m := range members {
		if err := a.writeMember(mw, m); err != nil {
			return nil, err
		}
	}

	if err := writePart(mw, ArchiveContentType, certstore.ArchiveName, bytes.NewReader(certificateArchive)); err != nil {
		return nil, fmt.Errorf("failed to write certificate archive part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("Content-Type: " + mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": boundary}) + crlf)
	out.WriteString("MIME-Version: 1.0" + crlf)
	out.WriteString(crlf)
	out.Write(body.Bytes())

	return out.Bytes(), nil
}

func (a *Assembler) writeMember(mw *multipart.Writer, m *member.Member) error {
	contentType := DefaultContentType
	sample, err := m.Sample(SampleSize)
	if err != nil {
		return err
	}
	if maintype, subtype, err := a.Sniffer.Sniff(sample, m.Name); err == nil {
		contentType = ContentTypeFor(maintype, subtype)
	}

	if err := m.Rewind(); err != nil {
		return err
	}
	if err := writePart(mw, contentType, m.Path(), m.Content); err != nil {
		return fmt.Errorf("failed to write part %s: %w", m.Path(), err)
	}
	return m.Rewind()
}

func writePart(mw *multipart.Writer, contentType, filename string, content io.Reader) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", formatWithParam(contentType, "name", filename))
	// Set would canonicalize the name to Mime-Version.
	header["MIME-Version"] = []string{"1.0"}
	header.Set("Content-Transfer-Encoding", "base64")
	header.Set("Content-Disposition", formatWithParam("attachment", "filename", filename))

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}

	lw := utils.NewLineWriter(part, lineLength, crlf)
	enc := base64.NewEncoder(base64.StdEncoding, lw)
	if _, err := io.Copy(enc, content); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIO, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return lw.Close()
}

// formatWithParam renders `value; key="param"`. Values outside printable
// ASCII are left to mime.FormatMediaType, which switches to RFC 2231 encoding.
func formatWithParam(value, key, param string) string {
	for _, r := range param {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return mime.FormatMediaType(value, map[string]string{key: param})
		}
	}
	return fmt.Sprintf(`%s; %s="%s"`, value, key, param)
}

func generateBoundary() string {
	return fmt.Sprintf("----=_Part_%s", strings.ReplaceAll(uuid.New().String(), "-", ""))
}
