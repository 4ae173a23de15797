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

// ExportBadges writes badges/definitions.json and one JSONL shard per
// contributor holding badges.
func ExportBadges(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) error {
	dir, err := ensureDir(dataDir, BadgesDir)
	if err != nil {
		return err
	}

	defs, err := query.AllBadgeDefinitions(ctx, db)
	if err != nil {
		return err
	}
	content, err := renderJSON(defs)
	if err != nil {
		return fmt.Errorf("badge definitions: %w", err)
	}
	path := filepath.Join(dir, "definitions.json")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	shardDir, err := ensureDir(dataDir, ContributorBadgesDir)
	if err != nil {
		return err
	}

	contributors, err := query.AllContributors(ctx, db)
	if err != nil {
		return err
	}

	type shard struct {
		username string
		badges   []schema.ContributorBadge
	}
	shards := make([]shard, 0, len(contributors))
	total := 0
	for _, c := range contributors {
		badges, err := query.BadgesForContributor(ctx, db, c.Username)
		if err != nil {
			return err
		}
		if len(badges) == 0 {
			continue
		}
		shards = append(shards, shard{username: c.Username, badges: badges})
		total += len(badges)
	}

	var g errgroup.Group
	g.SetLimit(writeConcurrency)
	for _, s := range shards {
		g.Go(func() error {
			content, err := renderJSONL(s.badges)
			if err != nil {
				return fmt.Errorf("badges for %s: %w", s.username, err)
			}
			path := filepath.Join(shardDir, s.username+".jsonl")
			if err := os.WriteFile(path, content, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Debug("wrote badges", "definitions", len(defs), "held", total)
	return nil
}
