package message

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"path"
	"strings"

	"github.com/privatwolke/opencce/internal/certstore"
	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/member"
)

// Disassemble splits a multipart message into members and the certificate
// store. A part whose filename ends in the archive name is parsed as the
// store; every other part becomes a member. A message without a store part
// yields an empty store.
func (a *Assembler) Disassemble(data []byte) ([]*member.Member, *certstore.Store, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", kerrors.ErrMalformedMessage, err)
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: content type: %v", kerrors.ErrMalformedMessage, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, nil, fmt.Errorf("%w: not a multipart message: %s", kerrors.ErrMalformedMessage, mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, nil, fmt.Errorf("%w: boundary not found in content type", kerrors.ErrMalformedMessage)
	}

	var (
		members []*member.Member
		store   = certstore.New()
	)

	reader := multipart.NewReader(msg.Body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: failed to read part: %v", kerrors.ErrMalformedMessage, err)
		}

		filename := partFilename(part)
		if filename == "" {
			part.Close()
			return nil, nil, fmt.Errorf("%w: part without filename", kerrors.ErrMalformedMessage)
		}

		content, err := readPart(part)
		part.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: part %s: %v", kerrors.ErrMalformedMessage, filename, err)
		}

		if path.Base(filename) == certstore.ArchiveName {
			parsed, err := certstore.Parse(content)
			if err != nil {
				return nil, nil, err
			}
			for _, c := range parsed.Certificates() {
				store.Insert(c)
			}
			continue
		}

		directory, name, err := member.SplitPath(filename)
		if err != nil {
			return nil, nil, err
		}
		m, err := member.FromBytes(content, name, directory)
		if err != nil {
			return nil, nil, err
		}
		members = append(members, m)
	}

	return members, store, nil
}

// partFilename reads the filename from Content-Disposition, falling back to
// the Content-Type name parameter. Part.FileName is not used because it
// strips the directory.
func partFilename(part *multipart.Part) string {
	if _, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition")); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}
	if _, params, err := mime.ParseMediaType(part.Header.Get("Content-Type")); err == nil {
		return params["name"]
	}
	return ""
}

// readPart returns the decoded body. Quoted-printable is already decoded by
// the multipart reader.
func readPart(part *multipart.Part) ([]byte, error) {
	var r io.Reader = part
	if strings.EqualFold(strings.TrimSpace(part.Header.Get("Content-Transfer-Encoding")), "base64") {
		r = base64.NewDecoder(base64.StdEncoding, part)
	}
	return io.ReadAll(r)
}
