package message

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is used whenever no better type can be determined.
const DefaultContentType = "application/octet-stream"

// SampleSize is the number of leading bytes handed to a Sniffer.
const SampleSize = 3072

// Sniffer maps a content sample and its filename to a MIME type.
type Sniffer interface {
	Sniff(sample []byte, name string) (maintype, subtype string, err error)
}

// SnifferFunc adapts a function to the Sniffer interface.
type SnifferFunc func(sample []byte, name string) (string, string, error)

func (f SnifferFunc) Sniff(sample []byte, name string) (string, string, error) {
	return f(sample, name)
}

// MagicSniffer detects types from content signatures and falls back to the
// filename extension when the content is not recognized.
type MagicSniffer struct{}

func (MagicSniffer) Sniff(sample []byte, name string) (string, string, error) {
	detected := mimetype.Detect(sample).String()
	if base, _, err := mime.ParseMediaType(detected); err == nil {
		detected = base
	}

	if detected == DefaultContentType {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			detected = byExt
		}
	}

	base, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return "", "", err
	}
	maintype, subtype, _ := strings.Cut(base, "/")
	return maintype, subtype, nil
}

// ContentTypeFor maps a sniffed type onto the types CCE readers accept.
// Only application, audio, image and text keep their subtype; everything
// else is sent as application/octet-stream.
func ContentTypeFor(maintype, subtype string) string {
	maintype = strings.ToLower(maintype)
	subtype = strings.ToLower(subtype)
	if subtype == "" {
		return DefaultContentType
	}

	switch maintype {
	case "application", "audio", "image", "text":
		return maintype + "/" + subtype
	default:
		return DefaultContentType
	}
}
