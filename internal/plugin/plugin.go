// Package plugin defines the data-source contract and the runner that
// drives configured plugins through their setup and scrape phases.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

// Context is what a plugin gets to work with: the shared store, its
// own config block from config.yaml, the read-only org config, and a
// logger scoped to the plugin.
type Context struct {
	DB     store.Store
	Config map[string]any
	Org    schema.OrgConfig
	Logger *slog.Logger
}

// Plugin is a data source. Scrape fetches activity data and writes it
// through the query layer. Name must be non-empty and Version must be
// a semantic version.
type Plugin interface {
	Name() string
	Version() string
	Scrape(ctx context.Context, pctx *Context) error
}

// SetupPlugin is implemented by plugins that need to register catalog
// rows (activity definitions, badges, aggregate definitions) before
// any plugin scrapes.
type SetupPlugin interface {
	Plugin
	Setup(ctx context.Context, pctx *Context) error
}

var semverPattern = regexp.MustCompile(`^v?\d+\.\d+\.\d+(?:[-+][0-9A-Za-z.+-]+)?$`)

// Validate checks the static contract. Failures are configuration
// errors and abort the whole run.
func Validate(p Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin is nil")
	}
	if p.Name() == "" {
		return fmt.Errorf("plugin has an empty name")
	}
	if !semverPattern.MatchString(p.Version()) {
		return fmt.Errorf("plugin %s has invalid version %q", p.Name(), p.Version())
	}
	return nil
}
