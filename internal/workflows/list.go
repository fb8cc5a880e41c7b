package workflows

import (
	"context"

	"github.com/privatwolke/opencce/internal/certstore"
	"github.com/privatwolke/opencce/internal/configs"
)

// ListOptions configures the list workflow.
type ListOptions struct {
	KeyOptions

	// Input is the container path.
	Input string

	// Config overrides the user config loaded from disk.
	Config *configs.UserConfig
}

// ListEntry is one member of a container.
type ListEntry struct {
	Path string
	Size int64
}

// ListResult contains the contents of a container.
type ListResult struct {
	Key        KeyInfo
	Members    []ListEntry
	Recipients []*certstore.Certificate
}

// List decrypts a container in memory and reports its members and
// recipients without writing any file.
//
// Returns the same errors as Decrypt for missing files, keys and envelopes.
func List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return nil, err
	}

	c, keyInfo, err := open(ctx, cfg, opts.Input, opts.KeyOptions)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	result := &ListResult{
		Key:        keyInfo,
		Recipients: c.Store().Certificates(),
	}
	for _, m := range c.Members() {
		size, err := m.Size()
		if err != nil {
			return nil, err
		}
		result.Members = append(result.Members, ListEntry{Path: m.Path(), Size: size})
	}
	return result, nil
}
