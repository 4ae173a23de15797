package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

// ExportAggregates writes the three aggregate targets: the global
// catalog, the per-contributor definition catalog, and one JSONL shard
// per contributor with aggregate values.
func ExportAggregates(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) error {
	if err := exportGlobalAggregates(ctx, db, dataDir); err != nil {
		return err
	}
	if err := exportContributorAggregateDefinitions(ctx, db, dataDir); err != nil {
		return err
	}
	n, err := exportContributorAggregates(ctx, db, dataDir)
	if err != nil {
		return err
	}
	logger.Debug("wrote aggregates", "contributor_values", n)
	return nil
}

func exportGlobalAggregates(ctx context.Context, db store.Store, dataDir string) error {
	dir, err := ensureDir(dataDir, AggregatesDir)
	if err != nil {
		return err
	}
	aggregates, err := query.AllGlobalAggregates(ctx, db)
	if err != nil {
		return err
	}
	content, err := renderJSON(aggregates)
	if err != nil {
		return fmt.Errorf("global aggregates: %w", err)
	}
	path := filepath.Join(dir, "global.json")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func exportContributorAggregateDefinitions(ctx context.Context, db store.Store, dataDir string) error {
	dir, err := ensureDir(dataDir, AggregatesDir)
	if err != nil {
		return err
	}
	defs, err := query.AllContributorAggregateDefinitions(ctx, db)
	if err != nil {
		return err
	}
	content, err := renderJSON(defs)
	if err != nil {
		return fmt.Errorf("aggregate definitions: %w", err)
	}
	path := filepath.Join(dir, "definitions.json")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func exportContributorAggregates(ctx context.Context, db store.Store, dataDir string) (int, error) {
	dir, err := ensureDir(dataDir, ContributorAggregatesDir)
	if err != nil {
		return 0, err
	}

	contributors, err := query.AllContributors(ctx, db)
	if err != nil {
		return 0, err
	}

	type shard struct {
		username string
		values   []schema.ContributorAggregate
	}
	shards := make([]shard, 0, len(contributors))
	total := 0
	for _, c := range contributors {
		values, err := query.ContributorAggregatesFor(ctx, db, c.Username)
		if err != nil {
			return 0, err
		}
		if len(values) == 0 {
			continue
		}
		shards = append(shards, shard{username: c.Username, values: values})
		total += len(values)
	}

	var g errgroup.Group
	g.SetLimit(writeConcurrency)
	for _, s := range shards {
		g.Go(func() error {
			content, err := renderJSONL(s.values)
			if err != nil {
				return fmt.Errorf("aggregates for %s: %w", s.username, err)
			}
			path := filepath.Join(dir, s.username+".jsonl")
			if err := os.WriteFile(path, content, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total, nil
}
