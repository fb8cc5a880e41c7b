package message

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privatwolke/opencce/internal/certstore"
	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/member"
	"github.com/privatwolke/opencce/internal/testkit"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func newMember(t *testing.T, content []byte, name, dir string) *member.Member {
	t.Helper()
	m, err := member.FromBytes(content, name, dir)
	require.NoError(t, err)
	return m
}

func newArchive(t *testing.T, cns ...string) ([]byte, *certstore.Store) {
	t.Helper()
	store := certstore.New()
	for _, cn := range cns {
		_, err := store.Add(testkit.NewIdentity(t, cn).CertificateDER())
		require.NoError(t, err)
	}
	archive, err := store.Serialize()
	require.NoError(t, err)
	return archive, store
}

type parsedPart struct {
	header textproto.MIMEHeader
	body   []byte
}

func parseParts(t *testing.T, data []byte) []parsedPart {
	t.Helper()
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "1.0", msg.Header.Get("MIME-Version"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	var parts []parsedPart
	reader := multipart.NewReader(msg.Body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(part)
		require.NoError(t, err)
		parts = append(parts, parsedPart{header: part.Header, body: body})
	}
	return parts
}

func TestAssemble_Layout(t *testing.T) {
	archive, _ := newArchive(t, "alice")
	members := []*member.Member{
		newMember(t, []byte("hello world\n"), "notes.txt", ""),
		newMember(t, pngHeader, "pixel.png", "images/2024"),
	}

	data, err := NewAssembler(nil).Assemble(members, archive)
	require.NoError(t, err)

	parts := parseParts(t, data)
	require.Len(t, parts, 3)

	first := parts[0].header
	assert.Equal(t, `attachment; filename="/notes.txt"`, first.Get("Content-Disposition"))
	assert.Equal(t, `text/plain; name="/notes.txt"`, first.Get("Content-Type"))
	assert.Equal(t, "base64", first.Get("Content-Transfer-Encoding"))

	second := parts[1].header
	assert.Equal(t, `attachment; filename="/images/2024/pixel.png"`, second.Get("Content-Disposition"))
	assert.Equal(t, `image/png; name="/images/2024/pixel.png"`, second.Get("Content-Type"))

	// The message header and every part spell the header MIME-Version.
	assert.Equal(t, 4, strings.Count(string(data), "\r\nMIME-Version: 1.0\r\n"))
	assert.NotContains(t, string(data), "Mime-Version")

	last := parts[2].header
	assert.Equal(t, `attachment; filename="RecipientCertificates.xml.zip"`, last.Get("Content-Disposition"))
	assert.Equal(t, `application/zip; name="RecipientCertificates.xml.zip"`, last.Get("Content-Type"))

	for _, p := range parts {
		for _, line := range strings.Split(strings.TrimRight(string(p.body), "\r\n"), "\r\n") {
			assert.LessOrEqual(t, len(line), 76)
		}
	}
}

func TestAssemble_UnknownMaintypeBecomesOctetStream(t *testing.T) {
	archive, _ := newArchive(t)
	sniffer := SnifferFunc(func(sample []byte, name string) (string, string, error) {
		return "video", "mp4", nil
	})

	data, err := NewAssembler(sniffer).Assemble([]*member.Member{newMember(t, []byte("x"), "clip.mp4", "")}, archive)
	require.NoError(t, err)

	parts := parseParts(t, data)
	assert.Equal(t, `application/octet-stream; name="/clip.mp4"`, parts[0].header.Get("Content-Type"))
}

func TestAssemble_SnifferFailureBecomesOctetStream(t *testing.T) {
	archive, _ := newArchive(t)
	sniffer := SnifferFunc(func(sample []byte, name string) (string, string, error) {
		return "", "", errors.New("no idea")
	})

	data, err := NewAssembler(sniffer).Assemble([]*member.Member{newMember(t, []byte("x"), "blob", "")}, archive)
	require.NoError(t, err)

	parts := parseParts(t, data)
	assert.Equal(t, `application/octet-stream; name="/blob"`, parts[0].header.Get("Content-Type"))
}

func TestAssemble_IsRepeatable(t *testing.T) {
	archive, _ := newArchive(t)
	m := newMember(t, []byte("same content"), "a.txt", "")
	assembler := NewAssembler(nil)

	first, err := assembler.Assemble([]*member.Member{m}, archive)
	require.NoError(t, err)
	second, err := assembler.Assemble([]*member.Member{m}, archive)
	require.NoError(t, err)

	assert.Equal(t, parseParts(t, first)[0].body, parseParts(t, second)[0].body)
}

func TestAssembleDisassemble_RoundTrip(t *testing.T) {
	archive, store := newArchive(t, "alice", "bob")
	inputs := []struct {
		content []byte
		name    string
		dir     string
	}{
		{[]byte("hello world\n"), "notes.txt", ""},
		{pngHeader, "pixel.png", "images/2024"},
		{bytes.Repeat([]byte{0, 1, 2, 3, 255}, 1000), "blob.bin", "../../etc"},
		{[]byte{}, "empty.txt", "docs"},
		{[]byte("grüße"), "grüße.txt", "übersicht"},
	}

	var members []*member.Member
	for _, in := range inputs {
		members = append(members, newMember(t, in.content, in.name, in.dir))
	}

	assembler := NewAssembler(nil)
	data, err := assembler.Assemble(members, archive)
	require.NoError(t, err)

	gotMembers, gotStore, err := assembler.Disassemble(data)
	require.NoError(t, err)
	require.Len(t, gotMembers, len(inputs))

	for i, in := range inputs {
		got := gotMembers[i]
		assert.Equal(t, in.name, got.Name)
		assert.Equal(t, member.SanitizeDirectory(in.dir), got.Directory)
		content, err := got.Bytes()
		require.NoError(t, err)
		assert.Equal(t, in.content, content)
	}
	assert.Equal(t, "/etc", gotMembers[2].Directory)
	assert.ElementsMatch(t, store.Fingerprints(), gotStore.Fingerprints())
}

func TestDisassemble_WithoutStorePart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, writePart(mw, "text/plain", "/a.txt", strings.NewReader("a")))
	require.NoError(t, mw.Close())

	contentType := mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mw.Boundary()})
	data := "Content-Type: " + contentType + "\r\n\r\n" + body.String()
	members, store, err := NewAssembler(nil).Disassemble([]byte(data))
	require.NoError(t, err)
	assert.Len(t, members, 1)
	assert.Equal(t, 0, store.Len())
}

func TestDisassemble_QuotedPrintableAndRawParts(t *testing.T) {
	data := "Content-Type: multipart/mixed; boundary=XYZ\n" +
		"\n" +
		"--XYZ\n" +
		"Content-Type: text/plain\n" +
		"Content-Transfer-Encoding: quoted-printable\n" +
		"Content-Disposition: attachment; filename=\"/docs/qp.txt\"\n" +
		"\n" +
		"caf=C3=A9\n" +
		"--XYZ\n" +
		"Content-Type: text/plain; name=\"/raw.txt\"\n" +
		"\n" +
		"raw body\n" +
		"--XYZ--\n"

	members, _, err := NewAssembler(nil).Disassemble([]byte(data))
	require.NoError(t, err)
	require.Len(t, members, 2)

	assert.Equal(t, "/docs", members[0].Directory)
	qp, err := members[0].Bytes()
	require.NoError(t, err)
	assert.Equal(t, "café", string(qp))

	assert.Equal(t, "raw.txt", members[1].Name)
	raw, err := members[1].Bytes()
	require.NoError(t, err)
	assert.Equal(t, "raw body", string(raw))
}

func TestDisassemble_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"NotMIME", "this is not a message"},
		{"NotMultipart", "Content-Type: text/plain\r\n\r\nhello"},
		{"NoBoundary", "Content-Type: multipart/mixed\r\n\r\nhello"},
		{"BrokenParts", "Content-Type: multipart/mixed; boundary=XYZ\r\n\r\n--XYZ\r\nbroken"},
		{"NoFilename", "Content-Type: multipart/mixed; boundary=XYZ\r\n\r\n--XYZ\r\nContent-Type: text/plain\r\n\r\nx\r\n--XYZ--\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewAssembler(nil).Disassemble([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, kerrors.ErrFormat)
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		maintype, subtype, want string
	}{
		{"application", "pdf", "application/pdf"},
		{"audio", "mpeg", "audio/mpeg"},
		{"image", "png", "image/png"},
		{"text", "plain", "text/plain"},
		{"TEXT", "HTML", "text/html"},
		{"video", "mp4", DefaultContentType},
		{"multipart", "mixed", DefaultContentType},
		{"model", "gltf+json", DefaultContentType},
		{"text", "", DefaultContentType},
		{"", "", DefaultContentType},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ContentTypeFor(tt.maintype, tt.subtype), "%s/%s", tt.maintype, tt.subtype)
	}
}

func TestMagicSniffer(t *testing.T) {
	tests := []struct {
		name     string
		sample   []byte
		filename string
		maintype string
		subtype  string
	}{
		{"PNG", pngHeader, "x", "image", "png"},
		{"PlainText", []byte("just some text\n"), "notes", "text", "plain"},
		{"PDF", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"), "doc.pdf", "application", "pdf"},
		{"UnknownBinaryFallsBackToExtension", []byte{0x00, 0x01, 0x02, 0xff}, "data.json", "application", "json"},
		{"UnknownBinary", []byte{0x00, 0x01, 0x02, 0xff}, "blob", "application", "octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maintype, subtype, err := MagicSniffer{}.Sniff(tt.sample, tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.maintype, maintype)
			assert.Equal(t, tt.subtype, subtype)
		})
	}
}

func TestFormatWithParam(t *testing.T) {
	assert.Equal(t, `attachment; filename="/a b.txt"`, formatWithParam("attachment", "filename", "/a b.txt"))

	encoded := formatWithParam("attachment", "filename", "/grüße.txt")
	_, params, err := mime.ParseMediaType(encoded)
	require.NoError(t, err)
	assert.Equal(t, "/grüße.txt", params["filename"])
}
