package importer

import (
	"context"
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

// ImportActivities loads activities/*.jsonl. Each line is one
// activity; lines that fail to parse or that the store rejects are
// skipped individually and excluded from the returned count.
func ImportActivities(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (int, error) {
	dir := filepath.Join(dataDir, exporter.ActivitiesDir)
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
			var activity schema.Activity
			if err := json.Unmarshal(line, &activity); err != nil {
				logger.Debug("skipping malformed activity line",
					"path", path, "line", i+1, logging.ErrAttr(err))
				continue
			}
			if err := query.UpsertActivity(ctx, db, activity); err != nil {
				logger.Debug("skipping rejected activity line",
					"path", path, "line", i+1, logging.ErrAttr(err))
				continue
			}
			imported++
		}
	}

	logger.Debug("imported activities", "count", imported)
	return imported, nil
}
