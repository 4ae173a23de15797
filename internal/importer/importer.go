// Package importer reads a data repo's file tree back into the store.
// It is the inverse of the exporter and deliberately forgiving:
// missing files mean zero records, lines that fail to parse or that
// the store rejects are skipped one at a time, and every write is an
// idempotent upsert.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/tallyboard/tally/internal/store"
)

// Counts reports what an ImportAll run loaded.
type Counts struct {
	Contributors          int
	Activities            int
	GlobalAggregates      int
	AggregateDefinitions  int
	ContributorAggregates int
	BadgeDefinitions      int
	ContributorBadges     int
}

// ImportAll loads every target under dataDir in dependency order:
// contributors first, then activities, aggregates and badges. Catalog
// files import before per-contributor shards.
func ImportAll(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (Counts, error) {
	var counts Counts
	var err error

	if counts.Contributors, err = ImportContributors(ctx, db, dataDir, logger); err != nil {
		return counts, fmt.Errorf("import contributors: %w", err)
	}
	if counts.Activities, err = ImportActivities(ctx, db, dataDir, logger); err != nil {
		return counts, fmt.Errorf("import activities: %w", err)
	}
	aggCounts, err := ImportAggregates(ctx, db, dataDir, logger)
	if err != nil {
		return counts, fmt.Errorf("import aggregates: %w", err)
	}
	counts.GlobalAggregates = aggCounts.Global
	counts.AggregateDefinitions = aggCounts.Definitions
	counts.ContributorAggregates = aggCounts.Contributors
	badgeCounts, err := ImportBadges(ctx, db, dataDir, logger)
	if err != nil {
		return counts, fmt.Errorf("import badges: %w", err)
	}
	counts.BadgeDefinitions = badgeCounts.Definitions
	counts.ContributorBadges = badgeCounts.Contributors

	logger.Info("import complete",
		"contributors", counts.Contributors,
		"activities", counts.Activities,
		"badges", counts.ContributorBadges)
	return counts, nil
}

// readDirOrEmpty lists a directory, treating a missing one as empty.
func readDirOrEmpty(dir string, logger *slog.Logger) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("directory missing, skipping", "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	return entries, nil
}

// readFileOrEmpty reads a file, treating a missing one as empty.
func readFileOrEmpty(path string, logger *slog.Logger) ([]byte, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("file missing, skipping", "path", path)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return raw, true, nil
}

// splitLines yields the non-empty lines of a JSONL payload.
func splitLines(raw []byte) [][]byte {
	var out [][]byte
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			out = append(out, line)
		}
	}
	return out
}
