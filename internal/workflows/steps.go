package workflows

import (
	"context"
	"fmt"

	"github.com/privatwolke/opencce/internal/configs"
)

// Step is the outcome of staging a single item. Err is nil on success.
type Step struct {
	Action  string
	Subject string
	Err     error
}

// OK reports whether the step succeeded.
func (s Step) OK() bool {
	return s.Err == nil
}

// Failed returns the steps that did not succeed.
func Failed(steps []Step) []Step {
	var failed []Step
	for _, s := range steps {
		if !s.OK() {
			failed = append(failed, s)
		}
	}
	return failed
}

// loadConfig returns cfg or the user config from disk.
func loadConfig(cfg *configs.UserConfig) (*configs.UserConfig, error) {
	if cfg != nil {
		return cfg, nil
	}
	loaded, err := configs.LoadUserConfig()
	if err != nil {
		return nil, fmt.Errorf("loading user config: %w", err)
	}
	return loaded, nil
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
