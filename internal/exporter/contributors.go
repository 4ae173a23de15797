package exporter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

// frontmatter is the YAML block of a contributor file. The username is
// deliberately absent: the filename carries it. Bio lives in the
// markdown body. Field order is fixed so re-exports are byte-stable.
type frontmatter struct {
	Name           string            `yaml:"name,omitempty"`
	Role           string            `yaml:"role,omitempty"`
	Title          string            `yaml:"title,omitempty"`
	AvatarURL      string            `yaml:"avatar_url,omitempty"`
	SocialProfiles map[string]string `yaml:"social_profiles,omitempty"`
	JoiningDate    string            `yaml:"joining_date,omitempty"`
	Meta           map[string]any    `yaml:"meta,omitempty"`
}

// ExportContributors writes contributors/<username>.md for every
// contributor and returns how many files it wrote.
func ExportContributors(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (int, error) {
	dir, err := ensureDir(dataDir, ContributorsDir)
	if err != nil {
		return 0, err
	}

	contributors, err := query.AllContributors(ctx, db)
	if err != nil {
		return 0, err
	}

	// Plain group: all store reads are done by now and file writes
	// take no context, so there is nothing left to cancel.
	var g errgroup.Group
	g.SetLimit(writeConcurrency)
	for _, c := range contributors {
		g.Go(func() error {
			content, err := renderContributorMarkdown(c)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, c.Username+".md")
			if err := os.WriteFile(path, content, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	logger.Debug("wrote contributor files", "count", len(contributors))
	return len(contributors), nil
}

func renderContributorMarkdown(c schema.Contributor) ([]byte, error) {
	fm := frontmatter{
		Name:           deref(c.Name),
		Role:           deref(c.Role),
		Title:          deref(c.Title),
		AvatarURL:      deref(c.AvatarURL),
		SocialProfiles: c.SocialProfiles,
		JoiningDate:    deref(c.JoiningDate),
		Meta:           c.Meta,
	}

	data, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("contributor %s: %w", c.Username, err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	// An all-empty struct renders as "{}"; an empty block reads better
	// and parses the same.
	if !bytes.Equal(data, []byte("{}\n")) {
		buf.Write(data)
	}
	buf.WriteString("---\n")

	if bio := strings.TrimSpace(deref(c.Bio)); bio != "" {
		buf.WriteString("\n")
		buf.WriteString(bio)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
