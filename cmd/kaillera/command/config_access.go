package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-kaillera/internal/access"
	"github.com/pixil98/go-kaillera/internal/relay"
	"github.com/pixil98/go-kaillera/internal/storage"
)

// AccessConfig points at a directory of access rule assets. Without a path
// every address gets normal access.
type AccessConfig struct {
	RulesPath    string `json:"rules_path"`
	DefaultLevel string `json:"default_level"`
}

func (c *AccessConfig) Validate() error {
	el := errors.NewErrorList()

	if c.RulesPath != "" {
		if _, err := os.Stat(c.RulesPath); err != nil {
			el.Add(fmt.Errorf("access: invalid rules_path %q: %w", c.RulesPath, err))
		}
	}
	if c.DefaultLevel != "" {
		if _, err := relay.ParseAccessLevel(c.DefaultLevel); err != nil {
			el.Add(fmt.Errorf("access default_level: %w", err))
		}
	}

	return el.Err()
}

// BuildManager returns nil when no rules are configured.
func (c *AccessConfig) BuildManager() (*access.Manager, error) {
	if c.RulesPath == "" {
		return nil, nil
	}

	store, err := storage.NewFileStore[*access.Rule](c.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("loading access rules: %w", err)
	}

	var opts []access.ManagerOpt
	if c.DefaultLevel != "" {
		level, err := relay.ParseAccessLevel(c.DefaultLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, access.WithDefaultLevel(level))
	}

	return access.NewManager(store, opts...), nil
}
