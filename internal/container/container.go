// Package container is the entry point for building and opening CCE
// containers.
//
// A Container holds payload members and the recipient certificate store.
// Encrypt assembles both into a multipart message and seals it for every
// certificate in the store. Load reverses the process.
//
// Members keep their content streams open until Close is called; files
// added by path are opened immediately and read on demand.
package container

import (
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/privatwolke/opencce/internal/certstore"
	"github.com/privatwolke/opencce/internal/envelope"
	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/member"
	"github.com/privatwolke/opencce/internal/message"
	"github.com/privatwolke/opencce/internal/secrets"
)

// Container is a set of members unique by (directory, name) plus the
// certificate store the container is addressed to.
type Container struct {
	store     *certstore.Store
	members   []*member.Member
	index     map[member.Key]*member.Member
	assembler *message.Assembler
}

// Option configures a Container.
type Option func(*Container)

// WithSniffer replaces the content type sniffer used when assembling.
func WithSniffer(s message.Sniffer) Option {
	return func(c *Container) {
		c.assembler = message.NewAssembler(s)
	}
}

// New returns an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		store:     certstore.New(),
		index:     make(map[member.Key]*member.Member),
		assembler: message.NewAssembler(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add opens the regular file at path and files it under directory using
// its base name. The file stays open until Close.
func (c *Container) Add(path, directory string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, path)
		}
		return fmt.Errorf("%w: %s: %v", kerrors.ErrPath, path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", kerrors.ErrNotRegularFile, path)
	}

	name := filepath.Base(path)
	if err := c.checkAvailable(name, directory); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", kerrors.ErrIO, path, err)
	}

	m, err := member.New(f, name, directory)
	if err != nil {
		f.Close()
		return err
	}
	c.insert(m)
	return nil
}

// AddStream files an already open stream under directory with the given
// name. The container takes ownership of stream and closes it if it is an
// io.Closer.
func (c *Container) AddStream(stream io.ReadSeeker, name, directory string) error {
	m, err := member.New(stream, name, directory)
	if err != nil {
		return err
	}
	if err := c.checkAvailable(m.Name, m.Directory); err != nil {
		return err
	}
	c.insert(m)
	return nil
}

// AddRecipientCertificate adds every certificate in the file at path to the
// store and returns the first.
func (c *Container) AddRecipientCertificate(path string) (*certstore.Certificate, error) {
	return c.store.AddFromFile(path)
}

func (c *Container) checkAvailable(name, directory string) error {
	if err := member.ValidateName(name); err != nil {
		return err
	}
	if name == certstore.ArchiveName {
		return fmt.Errorf("%w: %s", kerrors.ErrReservedName, name)
	}
	key := member.Key{Directory: member.SanitizeDirectory(directory), Name: name}
	if _, ok := c.index[key]; ok {
		return fmt.Errorf("%w: %s/%s", kerrors.ErrDuplicateMember, key.Directory, key.Name)
	}
	return nil
}

func (c *Container) insert(m *member.Member) {
	c.index[m.Key()] = m
	c.members = append(c.members, m)
}

// Store returns the recipient certificate store.
func (c *Container) Store() *certstore.Store {
	return c.store
}

// SetStore replaces the recipient certificate store.
func (c *Container) SetStore(s *certstore.Store) {
	if s == nil {
		s = certstore.New()
	}
	c.store = s
}

// Members returns the members in insertion order.
func (c *Container) Members() []*member.Member {
	return append([]*member.Member(nil), c.members...)
}

// Len returns the number of members.
func (c *Container) Len() int {
	return len(c.members)
}

// Message returns the unencrypted multipart message.
func (c *Container) Message() ([]byte, error) {
	return c.message(certstore.CompressionDefault)
}

func (c *Container) message(compression certstore.Compression) ([]byte, error) {
	archive, err := c.store.SerializeWithCompression(compression)
	if err != nil {
		return nil, err
	}
	return c.assembler.Assemble(c.members, archive)
}

// Encrypt seals the container for every certificate in the store. The
// empty cipher selects envelope.DefaultCipher.
func (c *Container) Encrypt(cipher string) ([]byte, error) {
	return c.EncryptWithCompression(cipher, certstore.CompressionDefault)
}

// EncryptWithCompression is Encrypt with a chosen compression for the
// embedded certificate archive.
func (c *Container) EncryptWithCompression(cipher string, compression certstore.Compression) ([]byte, error) {
	if c.store.Len() == 0 {
		return nil, kerrors.ErrNoRecipients
	}
	if err := envelope.ValidateCipher(cipher); err != nil {
		return nil, err
	}

	msg, err := c.message(compression)
	if err != nil {
		return nil, err
	}
	return envelope.Seal(msg, c.store.X509Certificates(), cipher)
}

// Entry is one exported member.
type Entry struct {
	PathSegments []string
	Filename     string
	Content      io.Reader
}

// Export yields every member in insertion order. Content is positioned at
// the start of the member; all members are rewound once iteration stops.
// A member that cannot be rewound is yielded once with a nil Content and an
// ErrIO error, and iteration ends there.
func (c *Container) Export() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		defer c.rewindAll()
		for _, m := range c.members {
			entry := Entry{PathSegments: m.PathSegments(), Filename: m.Name}
			if err := m.Rewind(); err != nil {
				yield(entry, fmt.Errorf("%w: exporting %s: %v", kerrors.ErrIO, m.Path(), err))
				return
			}
			entry.Content = m.Content
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (c *Container) rewindAll() {
	for _, m := range c.members {
		_ = m.Rewind()
	}
}

// Load decrypts envelope with the private key in keyData and returns the
// populated container. provider is only called for protected keys.
func Load(sealed, keyData []byte, provider secrets.PassphraseProvider, opts ...Option) (*Container, error) {
	material, err := secrets.LoadPrivateKey(keyData, provider)
	if err != nil {
		return nil, err
	}
	return LoadWithKey(sealed, material, opts...)
}

// LoadWithKey is Load with an already loaded key.
func LoadWithKey(sealed []byte, material *secrets.KeyMaterial, opts ...Option) (*Container, error) {
	msg, err := envelope.UnsealWithKey(sealed, material)
	if err != nil {
		return nil, err
	}

	c := New(opts...)
	members, store, err := c.assembler.Disassemble(msg)
	if err != nil {
		return nil, err
	}

	c.SetStore(store)
	for _, m := range members {
		if err := c.checkAvailable(m.Name, m.Directory); err != nil {
			c.Close()
			return nil, fmt.Errorf("%w: %w", kerrors.ErrMalformedMessage, err)
		}
		c.insert(m)
	}
	return c, nil
}

// Close releases every member stream. The first error is returned.
func (c *Container) Close() error {
	var first error
	for _, m := range c.members {
		if err := m.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
