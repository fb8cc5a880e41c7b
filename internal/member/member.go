// Package member models a single payload file inside a container.
package member

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/utils"
)

// Key identifies a member within a container.
type Key struct {
	Directory string
	Name      string
}

// Member is a named, re-readable byte stream filed under a sanitized
// directory. Directory is either empty (container root) or starts with "/"
// and never contains "." or ".." segments.
type Member struct {
	Name      string
	Directory string
	Content   io.ReadSeeker
}

// New validates name and sanitizes directory.
func New(content io.ReadSeeker, name, directory string) (*Member, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if content == nil {
		return nil, fmt.Errorf("%w: member %q has no content", kerrors.ErrConfiguration, name)
	}
	return &Member{
		Name:      name,
		Directory: SanitizeDirectory(directory),
		Content:   content,
	}, nil
}

// FromBytes creates a member backed by an in-memory buffer.
func FromBytes(data []byte, name, directory string) (*Member, error) {
	return New(bytes.NewReader(data), name, directory)
}

// ValidateName rejects empty names, names with path separators and the
// special names "." and "..".
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid member name %q", kerrors.ErrPath, name)
	}
	return nil
}

// SanitizeDirectory normalizes a logical directory. Both "/" and "\" act as
// separators; empty, "." and ".." segments are dropped, so the result can
// never climb out of the container root.
func SanitizeDirectory(directory string) string {
	segments := Segments(directory)
	if len(segments) == 0 {
		return ""
	}
	return "/" + strings.Join(segments, "/")
}

// Segments splits a logical directory into its meaningful segments.
func Segments(directory string) []string {
	fields := strings.FieldsFunc(directory, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	segments := fields[:0]
	for _, f := range fields {
		if f == "." || f == ".." {
			continue
		}
		segments = append(segments, f)
	}
	return segments
}

// SplitPath splits a wire filename like "/docs/notes.txt" into a sanitized
// directory and a name.
func SplitPath(path string) (directory, name string, err error) {
	segments := strings.Split(path, "/")
	var kept []string
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return "", "", fmt.Errorf("%w: empty member path", kerrors.ErrFormat)
	}

	name = kept[len(kept)-1]
	if err := ValidateName(name); err != nil {
		return "", "", fmt.Errorf("%w: %v", kerrors.ErrFormat, err)
	}
	return SanitizeDirectory(strings.Join(kept[:len(kept)-1], "/")), name, nil
}

func (m *Member) Key() Key {
	return Key{Directory: m.Directory, Name: m.Name}
}

// Path returns the wire filename: the directory followed by "/" and the name.
func (m *Member) Path() string {
	return m.Directory + "/" + m.Name
}

// PathSegments returns the directory segments without the name.
func (m *Member) PathSegments() []string {
	return Segments(m.Directory)
}

// Rewind seeks the content back to its start.
func (m *Member) Rewind() error {
	return utils.Rewind(m.Content)
}

// Sample returns up to n leading bytes and rewinds the content.
func (m *Member) Sample(n int) ([]byte, error) {
	if err := m.Rewind(); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(m.Content, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: sampling %s: %v", kerrors.ErrIO, m.Path(), err)
	}
	if err := m.Rewind(); err != nil {
		return nil, err
	}
	return buf[:read], nil
}

// WriteTo copies the whole content to w, rewinding before and after.
func (m *Member) WriteTo(w io.Writer) (int64, error) {
	if err := m.Rewind(); err != nil {
		return 0, err
	}
	n, err := io.Copy(w, m.Content)
	if err != nil {
		return n, fmt.Errorf("%w: reading %s: %v", kerrors.ErrIO, m.Path(), err)
	}
	return n, m.Rewind()
}

// Bytes returns the whole content.
func (m *Member) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, bytes.MinRead))
	if _, err := m.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Size returns the content length in bytes.
func (m *Member) Size() (int64, error) {
	size, err := m.Content.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: sizing %s: %v", kerrors.ErrIO, m.Path(), err)
	}
	return size, m.Rewind()
}

// Close releases the content stream when it holds a resource.
func (m *Member) Close() error {
	if c, ok := m.Content.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
