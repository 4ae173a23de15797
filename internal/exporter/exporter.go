// Package exporter regenerates the data repo's file tree from the
// store: markdown profiles, JSONL activity shards, and JSON catalogs.
// Every export fully rewrites its target; an unchanged store produces
// byte-identical files.
package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tallyboard/tally/internal/store"
)

// Directory layout inside a data dir.
const (
	ContributorsDir          = "contributors"
	ActivitiesDir            = "activities"
	AggregatesDir            = "aggregates"
	ContributorAggregatesDir = "aggregates/contributors"
	BadgesDir                = "badges"
	ContributorBadgesDir     = "badges/contributors"
	AnalyticsDir             = "analytics"
)

// writeConcurrency bounds the per-contributor file fan-out.
const writeConcurrency = 8

// ExportAll writes every export target under dataDir.
func ExportAll(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) error {
	contributors, err := ExportContributors(ctx, db, dataDir, logger)
	if err != nil {
		return fmt.Errorf("export contributors: %w", err)
	}
	activities, err := ExportActivities(ctx, db, dataDir, logger)
	if err != nil {
		return fmt.Errorf("export activities: %w", err)
	}
	if err := ExportAggregates(ctx, db, dataDir, logger); err != nil {
		return fmt.Errorf("export aggregates: %w", err)
	}
	if err := ExportBadges(ctx, db, dataDir, logger); err != nil {
		return fmt.Errorf("export badges: %w", err)
	}
	logger.Info("export complete", "contributors", contributors, "activities", activities)
	return nil
}

func ensureDir(dataDir, sub string) (string, error) {
	dir := filepath.Join(dataDir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}
