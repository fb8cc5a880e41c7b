package workflows

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/privatwolke/opencce/internal/certstore"
	"github.com/privatwolke/opencce/internal/configs"
	"github.com/privatwolke/opencce/internal/container"
	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/secrets"
	"github.com/privatwolke/opencce/internal/utils"
)

// EncryptOptions configures the encrypt workflow.
type EncryptOptions struct {
	// Certificates are recipient certificate paths or configured aliases.
	Certificates []string

	// Files are file paths, directories or glob patterns to add.
	Files []string

	// BaseDir resolves relative file patterns. Defaults to the working directory.
	BaseDir string

	// Directory is the container directory every file is filed under.
	Directory string

	// Output is the container path. Defaults to the configured output.
	Output string

	// Cipher names the content cipher. Defaults to the configured cipher.
	Cipher string

	// Compress writes the embedded certificate archive with maximum compression.
	Compress bool

	// Config overrides the user config loaded from disk.
	Config *configs.UserConfig
}

// EncryptResult contains the outcome of an encrypt operation.
type EncryptResult struct {
	// Output is the path of the written container.
	Output string

	// Steps records every certificate and file that was staged, in order.
	Steps []Step

	// Recipients lists the certificates the container is sealed for.
	Recipients []*certstore.Certificate

	// Members is the number of files in the container.
	Members int

	// Size is the container size in bytes.
	Size int
}

// Encrypt builds a container from the given files and seals it for the
// given recipients.
//
// Certificates and files that cannot be staged are recorded as failed steps
// and skipped. The container is written atomically, so a failure never
// leaves a partial output file behind.
//
// Returns ErrNoRecipients if no certificate could be added.
// Returns ErrNoFilesFound if no file could be added.
// Returns ErrUnknownCipher if the cipher is not supported.
func Encrypt(ctx context.Context, opts EncryptOptions) (*EncryptResult, error) {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return nil, err
	}

	cipher := opts.Cipher
	if cipher == "" {
		cipher = cfg.Defaults.Cipher
	}
	output := opts.Output
	if output == "" {
		output = cfg.Defaults.Output
	}
	baseDir := opts.BaseDir
	if baseDir == "" {
		if baseDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("%w: determining working directory: %v", kerrors.ErrIO, err)
		}
	}

	c := container.New()
	defer c.Close()

	result := &EncryptResult{Output: output}

	for _, identifier := range opts.Certificates {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		step := Step{Action: "Adding certificate", Subject: identifier}
		certPath, err := cfg.ResolveCertificate(identifier)
		if err == nil {
			_, err = c.AddRecipientCertificate(certPath)
		}
		step.Err = err
		result.Steps = append(result.Steps, step)
	}

	files, unmatched, err := secrets.ResolveFiles(opts.Files, baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving file patterns: %w", err)
	}
	for _, pattern := range unmatched {
		result.Steps = append(result.Steps, Step{
			Action:  "Adding file",
			Subject: pattern,
			Err:     fmt.Errorf("%w: %s", kerrors.ErrNoFilesFound, pattern),
		})
	}

	for _, f := range files {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		step := Step{Action: "Adding file", Subject: f.Path}
		step.Err = c.Add(f.Path, path.Join(opts.Directory, f.Directory))
		result.Steps = append(result.Steps, step)
	}

	if c.Store().Len() == 0 {
		return result, kerrors.ErrNoRecipients
	}
	if c.Len() == 0 {
		return result, kerrors.ErrNoFilesFound
	}

	compression := certstore.CompressionDefault
	if opts.Compress {
		compression = certstore.CompressionBest
	}

	sealed, err := c.EncryptWithCompression(cipher, compression)
	if err != nil {
		return result, err
	}

	if err := utils.WriteFileAtomic(output, sealed, 0644); err != nil {
		return result, fmt.Errorf("%w: writing %s: %v", kerrors.ErrIO, output, err)
	}

	result.Recipients = c.Store().Certificates()
	result.Members = c.Len()
	result.Size = len(sealed)
	return result, nil
}
