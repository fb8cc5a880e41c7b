package workflows

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/privatwolke/opencce/internal/certstore"
	"github.com/privatwolke/opencce/internal/configs"
	"github.com/privatwolke/opencce/internal/container"
	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/secrets"
	"github.com/privatwolke/opencce/internal/utils"
)

// StdinKeyPath is reported as the key path when the key was passed as data.
const StdinKeyPath = "<stdin>"

// KeyOptions selects the private key used to open a container.
type KeyOptions struct {
	// Key is a key file path or configured alias. Empty selects the default key.
	Key string

	// KeyData holds the key itself, for example piped on stdin. It takes
	// precedence over Key.
	KeyData []byte

	// Passphrase unlocks a protected key. When nil, Prompt is used.
	Passphrase []byte

	// Prompt is asked for the passphrase when the key is protected and no
	// Passphrase was given.
	Prompt secrets.PassphraseProvider
}

// KeyInfo describes the key that was used.
type KeyInfo struct {
	Path string

	// LooseMode is set when the key file is readable by group or others.
	LooseMode os.FileMode
}

// DecryptOptions configures the decrypt workflow.
type DecryptOptions struct {
	KeyOptions

	// Input is the container path.
	Input string

	// OutputDir is where members are extracted. Defaults to the configured directory.
	OutputDir string

	// Force overwrites existing files.
	Force bool

	// Config overrides the user config loaded from disk.
	Config *configs.UserConfig
}

// DecryptResult contains the outcome of a decrypt operation.
type DecryptResult struct {
	Key KeyInfo

	// Steps records every member that was extracted or skipped, in order.
	Steps []Step

	// Written lists the files that were created.
	Written []string

	// Recipients lists the certificates embedded in the container.
	Recipients []*certstore.Certificate
}

// Decrypt opens a container and extracts its members below OutputDir,
// preserving the container hierarchy.
//
// Members that would escape OutputDir or overwrite an existing file
// without Force are recorded as failed steps and skipped. Every file is
// written atomically.
//
// Returns ErrFileNotFound if the container does not exist.
// Returns ErrKeyLoadFailed if the key cannot be loaded or unlocked.
// Returns ErrInvalidEnvelope if the input is not a container.
// Returns ErrIO if a decrypted member cannot be read back.
// Returns ErrDecryptionFailed if the key is not one of the recipients.
func Decrypt(ctx context.Context, opts DecryptOptions) (*DecryptResult, error) {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return nil, err
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = cfg.Defaults.Directory
	}
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrPath, err)
	}

	c, keyInfo, err := open(ctx, cfg, opts.Input, opts.KeyOptions)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	result := &DecryptResult{
		Key:        keyInfo,
		Recipients: c.Store().Certificates(),
	}

	for entry, err := range c.Export() {
		if err != nil {
			return nil, err
		}
		if err := checkContext(ctx); err != nil {
			return nil, err
		}

		rel := filepath.Join(append(entry.PathSegments, entry.Filename)...)
		step := Step{Action: "Extracting file", Subject: filepath.ToSlash(rel)}
		target := filepath.Join(outputDir, rel)

		switch {
		case !utils.IsWithin(outputDir, target):
			step.Err = fmt.Errorf("%w: %s escapes %s", kerrors.ErrPath, rel, outputDir)
		case !opts.Force && utils.FileExists(target):
			step.Err = fmt.Errorf("%w: %s", kerrors.ErrOutputExists, target)
		default:
			step.Err = extract(entry.Content, target)
		}

		if step.OK() {
			result.Written = append(result.Written, target)
		}
		result.Steps = append(result.Steps, step)
	}

	return result, nil
}

func extract(content io.Reader, target string) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIO, err)
	}
	if err := utils.WriteFileAtomic(target, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIO, err)
	}
	return nil
}

// open resolves the key, loads it and decrypts the container at input.
func open(ctx context.Context, cfg *configs.UserConfig, input string, opts KeyOptions) (*container.Container, KeyInfo, error) {
	var info KeyInfo

	sealed, err := os.ReadFile(input)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, info, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, input)
		}
		return nil, info, fmt.Errorf("%w: reading %s: %v", kerrors.ErrIO, input, err)
	}

	provider := opts.Prompt
	if opts.Passphrase != nil {
		provider = secrets.StaticPassphrase(opts.Passphrase)
	}

	var material *secrets.KeyMaterial
	if opts.KeyData != nil {
		info.Path = StdinKeyPath
		material, err = secrets.LoadPrivateKey(opts.KeyData, provider)
	} else {
		var keyPath string
		keyPath, err = cfg.ResolveKey(opts.Key)
		if err != nil {
			return nil, info, err
		}
		info.Path = keyPath
		if mode, loose := secrets.KeyFileTooPermissive(keyPath); loose {
			info.LooseMode = mode
		}
		material, err = secrets.LoadPrivateKeyFile(keyPath, provider)
	}
	if err != nil {
		return nil, info, err
	}

	if err := checkContext(ctx); err != nil {
		return nil, info, err
	}

	c, err := container.LoadWithKey(sealed, material)
	if err != nil {
		return nil, info, err
	}
	return c, info, nil
}
