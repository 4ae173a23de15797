package importer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tallyboard/tally/internal/exporter"
	"github.com/tallyboard/tally/internal/logging"
	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

type contributorFrontmatter struct {
	Name           string            `yaml:"name"`
	Role           string            `yaml:"role"`
	Title          string            `yaml:"title"`
	AvatarURL      string            `yaml:"avatar_url"`
	SocialProfiles map[string]string `yaml:"social_profiles"`
	JoiningDate    string            `yaml:"joining_date"`
	Meta           map[string]any    `yaml:"meta"`
}

// ImportContributors loads contributors/*.md. The username comes from
// the filename; the frontmatter carries the profile fields and the
// body the bio. Files that fail to parse, or that the store rejects,
// are skipped with a warning.
func ImportContributors(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (int, error) {
	dir := filepath.Join(dataDir, exporter.ContributorsDir)
	entries, err := readDirOrEmpty(dir, logger)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		username := strings.TrimSuffix(entry.Name(), ".md")
		path := filepath.Join(dir, entry.Name())

		raw, ok, err := readFileOrEmpty(path, logger)
		if err != nil {
			return imported, err
		}
		if !ok {
			continue
		}

		contributor, err := parseContributorMarkdown(username, raw)
		if err != nil {
			logger.Warn("skipping malformed contributor file", "path", path, logging.ErrAttr(err))
			continue
		}
		if err := query.UpsertContributor(ctx, db, contributor); err != nil {
			logger.Warn("skipping contributor the store rejected", "path", path, logging.ErrAttr(err))
			continue
		}
		imported++
	}

	logger.Debug("imported contributors", "count", imported)
	return imported, nil
}

func parseContributorMarkdown(username string, raw []byte) (schema.Contributor, error) {
	fmText, body := splitFrontmatter(string(raw))

	var fm contributorFrontmatter
	if fmText != "" {
		if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
			return schema.Contributor{}, fmt.Errorf("bad frontmatter: %w", err)
		}
	}

	c := schema.Contributor{
		Username:       username,
		Name:           optional(fm.Name),
		Role:           optional(fm.Role),
		Title:          optional(fm.Title),
		AvatarURL:      optional(fm.AvatarURL),
		SocialProfiles: fm.SocialProfiles,
		JoiningDate:    optional(fm.JoiningDate),
		Meta:           fm.Meta,
	}
	if bio := strings.TrimSpace(body); bio != "" {
		c.Bio = &bio
	}
	return c, nil
}

// splitFrontmatter separates the leading `---` delimited YAML block
// from the markdown body. Content without a frontmatter block is all
// body.
func splitFrontmatter(content string) (frontmatter, body string) {
	rest, ok := strings.CutPrefix(content, "---\n")
	if !ok {
		return "", content
	}
	// Empty block: the closing delimiter follows immediately.
	if after, ok := strings.CutPrefix(rest, "---\n"); ok {
		return "", after
	}
	if after, ok := strings.CutPrefix(rest, "---"); ok && after == "" {
		return "", ""
	}
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		if strings.HasSuffix(rest, "\n---") {
			return rest[:len(rest)-len("\n---")], ""
		}
		return "", content
	}
	return rest[:idx], rest[idx+len("\n---\n"):]
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
