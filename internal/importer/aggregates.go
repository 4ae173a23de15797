package importer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tallyboard/tally/internal/exporter"
	"github.com/tallyboard/tally/internal/logging"
	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

// AggregateCounts breaks down what ImportAggregates loaded.
type AggregateCounts struct {
	Global       int
	Definitions  int
	Contributors int
}

// ImportAggregates loads the catalog files before the per-contributor
// shards, so values never reference definitions that are not in yet.
func ImportAggregates(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (AggregateCounts, error) {
	var counts AggregateCounts
	var err error

	if counts.Global, err = importGlobalAggregates(ctx, db, dataDir, logger); err != nil {
		return counts, err
	}
	if counts.Definitions, err = importAggregateDefinitions(ctx, db, dataDir, logger); err != nil {
		return counts, err
	}
	if counts.Contributors, err = importContributorAggregates(ctx, db, dataDir, logger); err != nil {
		return counts, err
	}
	return counts, nil
}

func importGlobalAggregates(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (int, error) {
	path := filepath.Join(dataDir, exporter.AggregatesDir, "global.json")
	raw, ok, err := readFileOrEmpty(path, logger)
	if err != nil || !ok {
		return 0, err
	}

	var aggregates []schema.GlobalAggregate
	if err := json.Unmarshal(raw, &aggregates); err != nil {
		logger.Warn("skipping malformed global aggregates", "path", path, logging.ErrAttr(err))
		return 0, nil
	}
	for _, g := range aggregates {
		if err := query.UpsertGlobalAggregate(ctx, db, g); err != nil {
			return 0, fmt.Errorf("upsert global aggregate %s: %w", g.Slug, err)
		}
	}
	return len(aggregates), nil
}

func importAggregateDefinitions(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (int, error) {
	path := filepath.Join(dataDir, exporter.AggregatesDir, "definitions.json")
	raw, ok, err := readFileOrEmpty(path, logger)
	if err != nil || !ok {
		return 0, err
	}

	var defs []schema.ContributorAggregateDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		logger.Warn("skipping malformed aggregate definitions", "path", path, logging.ErrAttr(err))
		return 0, nil
	}
	for _, d := range defs {
		if err := query.UpsertContributorAggregateDefinition(ctx, db, d); err != nil {
			return 0, fmt.Errorf("upsert aggregate definition %s: %w", d.Slug, err)
		}
	}
	return len(defs), nil
}

func importContributorAggregates(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (int, error) {
	dir := filepath.Join(dataDir, exporter.ContributorAggregatesDir)
	entries, err := readDirOrEmpty(dir, logger)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, ok, err := readFileOrEmpty(path, logger)
		if err != nil {
			return imported, err
		}
		if !ok {
			continue
		}

		for i, line := range splitLines(raw) {
			var value schema.ContributorAggregate
			if err := json.Unmarshal(line, &value); err != nil {
				logger.Debug("skipping malformed aggregate line",
					"path", path, "line", i+1, logging.ErrAttr(err))
				continue
			}
			if err := query.UpsertContributorAggregate(ctx, db, value); err != nil {
				logger.Debug("skipping rejected aggregate line",
					"path", path, "line", i+1, logging.ErrAttr(err))
				continue
			}
			imported++
		}
	}
	return imported, nil
}
