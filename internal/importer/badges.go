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

// BadgeCounts breaks down what ImportBadges loaded.
type BadgeCounts struct {
	Definitions  int
	Contributors int
}

// ImportBadges loads badges/definitions.json before the per-contributor
// shards. Held badges import through AwardBadge so re-imports are
// no-ops rather than duplicates.
func ImportBadges(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (BadgeCounts, error) {
	var counts BadgeCounts
	var err error

	if counts.Definitions, err = importBadgeDefinitions(ctx, db, dataDir, logger); err != nil {
		return counts, err
	}
	if counts.Contributors, err = importContributorBadges(ctx, db, dataDir, logger); err != nil {
		return counts, err
	}
	return counts, nil
}

func importBadgeDefinitions(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (int, error) {
	path := filepath.Join(dataDir, exporter.BadgesDir, "definitions.json")
	raw, ok, err := readFileOrEmpty(path, logger)
	if err != nil || !ok {
		return 0, err
	}

	var defs []schema.BadgeDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		logger.Warn("skipping malformed badge definitions", "path", path, logging.ErrAttr(err))
		return 0, nil
	}
	for _, d := range defs {
		if err := query.UpsertBadgeDefinition(ctx, db, d); err != nil {
			return 0, fmt.Errorf("upsert badge definition %s: %w", d.Slug, err)
		}
	}
	return len(defs), nil
}

func importContributorBadges(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (int, error) {
	dir := filepath.Join(dataDir, exporter.ContributorBadgesDir)
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
			var badge schema.ContributorBadge
			if err := json.Unmarshal(line, &badge); err != nil {
				logger.Debug("skipping malformed badge line",
					"path", path, "line", i+1, logging.ErrAttr(err))
				continue
			}
			if err := query.AwardBadge(ctx, db, badge); err != nil {
				logger.Debug("skipping rejected badge line",
					"path", path, "line", i+1, logging.ErrAttr(err))
				continue
			}
			imported++
		}
	}
	return imported, nil
}
