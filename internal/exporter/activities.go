package exporter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

// ExportActivities writes activities/<contributor>.jsonl, one line per
// activity. Contributors without activities get no file at all, which
// keeps the tree sparse. Returns the number of activities written.
func ExportActivities(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (int, error) {
	dir, err := ensureDir(dataDir, ActivitiesDir)
	if err != nil {
		return 0, err
	}

	contributors, err := query.AllContributors(ctx, db)
	if err != nil {
		return 0, err
	}

	type shard struct {
		username   string
		activities []schema.Activity
	}
	shards := make([]shard, 0, len(contributors))
	total := 0
	for _, c := range contributors {
		activities, err := query.ActivitiesByContributor(ctx, db, c.Username, 0)
		if err != nil {
			return 0, err
		}
		if len(activities) == 0 {
			continue
		}
		shards = append(shards, shard{username: c.Username, activities: activities})
		total += len(activities)
	}

	var g errgroup.Group
	g.SetLimit(writeConcurrency)
	for _, s := range shards {
		g.Go(func() error {
			content, err := renderJSONL(s.activities)
			if err != nil {
				return fmt.Errorf("activities for %s: %w", s.username, err)
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

	logger.Debug("wrote activity shards", "files", len(shards), "activities", total)
	return total, nil
}

// renderJSONL marshals each record onto its own line.
func renderJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// renderJSON marshals a catalog file with stable two-space indenting.
// A nil slice still renders as an empty array.
func renderJSON[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
