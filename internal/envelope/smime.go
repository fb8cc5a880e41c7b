package envelope

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"strings"

	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/utils"
)

const (
	// Filename is the attachment name of the sealed entity.
	Filename = "smime.p7m"

	// ContentType is the media type of the sealed entity.
	ContentType = "application/x-pkcs7-mime"

	base64LineWidth = 64
)

// writeSMIME wraps DER encoded enveloped-data in a textual S/MIME entity.
func writeSMIME(der []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("MIME-Version: 1.0\n")
	buf.WriteString("Content-Disposition: attachment; filename=\"" + Filename + "\"\n")
	buf.WriteString("Content-Type: " + ContentType + "; smime-type=enveloped-data; name=\"" + Filename + "\"\n")
	buf.WriteString("Content-Transfer-Encoding: base64\n")
	buf.WriteString("\n")

	lw := utils.NewLineWriter(&buf, base64LineWidth, "\n")
	enc := base64.NewEncoder(base64.StdEncoding, lw)
	if _, err := enc.Write(der); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	if err := lw.Close(); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), " \t\r\n"), nil
}

// readSMIME extracts the DER enveloped-data from a textual S/MIME entity.
// Both the x-pkcs7-mime and pkcs7-mime media types are accepted.
func readSMIME(data []byte) ([]byte, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidEnvelope, err)
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: content type: %v", kerrors.ErrInvalidEnvelope, err)
	}
	if mediaType != ContentType && mediaType != "application/pkcs7-mime" {
		return nil, fmt.Errorf("%w: unexpected content type %q", kerrors.ErrInvalidEnvelope, mediaType)
	}
	if smimeType := params["smime-type"]; smimeType != "" && smimeType != "enveloped-data" {
		return nil, fmt.Errorf("%w: unexpected smime-type %q", kerrors.ErrInvalidEnvelope, smimeType)
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidEnvelope, err)
	}

	switch cte := strings.ToLower(strings.TrimSpace(msg.Header.Get("Content-Transfer-Encoding"))); cte {
	case "base64":
		der, err := io.ReadAll(base64.NewDecoder(base64.StdEncoding, bytes.NewReader(stripWhitespace(body))))
		if err != nil {
			return nil, fmt.Errorf("%w: base64 body: %v", kerrors.ErrInvalidEnvelope, err)
		}
		return der, nil
	case "", "binary", "7bit", "8bit":
		return body, nil
	default:
		return nil, fmt.Errorf("%w: unsupported transfer encoding %q", kerrors.ErrInvalidEnvelope, cte)
	}
}

func stripWhitespace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			out = append(out, c)
		}
	}
	return out
}
