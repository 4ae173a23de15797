package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tallyboard/tally/internal/logging"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

type loaded struct {
	id     string
	plugin Plugin
	pctx   *Context
}

// Run resolves every configured plugin against the default registry
// and drives them through both phases. See RunWithRegistry.
func Run(ctx context.Context, cfg *schema.Config, db store.Store, logger *slog.Logger) error {
	return RunWithRegistry(ctx, defaultRegistry, cfg, db, logger)
}

// RunWithRegistry executes the plugin phases:
//
//  1. Resolution and validation of every configured plugin. Any
//     failure here is fatal; nothing runs.
//  2. Setup, for plugins that have it. Every setup completes before
//     any scrape starts, so scrapes can rely on catalog rows written
//     by any plugin's setup. A setup failure aborts the run.
//  3. Scrape. A failing scrape is logged and skipped; the remaining
//     plugins still run. The failures come back joined in the
//     returned error.
//
// Plugins run in the sorted order of their config ids so runs are
// reproducible.
func RunWithRegistry(ctx context.Context, reg *Registry, cfg *schema.Config, db store.Store, logger *slog.Logger) error {
	ids := make([]string, 0, len(cfg.Leaderboard.Plugins))
	for id := range cfg.Leaderboard.Plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	plugins := make([]loaded, 0, len(ids))
	for _, id := range ids {
		spec := cfg.Leaderboard.Plugins[id]
		p, err := reg.Lookup(spec.Source)
		if err != nil {
			return fmt.Errorf("plugin %s: %w", id, err)
		}
		if err := Validate(p); err != nil {
			return fmt.Errorf("plugin %s: %w", id, err)
		}
		plugins = append(plugins, loaded{
			id:     id,
			plugin: p,
			pctx: &Context{
				DB:     db,
				Config: spec.Config,
				Org:    cfg.Org,
				Logger: logger.With("plugin", id),
			},
		})
	}

	if len(plugins) == 0 {
		logger.Info("no plugins configured")
		return nil
	}
	logger.Info("plugins resolved", "count", len(plugins))

	for _, l := range plugins {
		sp, ok := l.plugin.(SetupPlugin)
		if !ok {
			continue
		}
		logger.Info("running setup", "plugin", l.id, "name", l.plugin.Name(), "version", l.plugin.Version())
		if err := sp.Setup(ctx, l.pctx); err != nil {
			return fmt.Errorf("plugin %s setup failed: %w", l.id, err)
		}
	}

	var failures []error
	for _, l := range plugins {
		logger.Info("running scrape", "plugin", l.id, "name", l.plugin.Name(), "version", l.plugin.Version())
		if err := l.plugin.Scrape(ctx, l.pctx); err != nil {
			logger.Error("scrape failed", "plugin", l.id, logging.ErrAttr(err))
			failures = append(failures, fmt.Errorf("plugin %s: %w", l.id, err))
			continue
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d plugins failed: %w", len(failures), len(plugins), errors.Join(failures...))
	}
	return nil
}
