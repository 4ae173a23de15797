package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

// ErrUnknownVariant is returned when a badge write names a variant the
// badge definition does not declare.
var ErrUnknownVariant = errors.New("unknown badge variant")

// ErrBadgeNotFound is returned when an upgrade targets a badge record
// or definition that does not exist.
var ErrBadgeNotFound = errors.New("badge not found")

func scanBadgeDefinition(row store.Row) (schema.BadgeDefinition, error) {
	d := schema.BadgeDefinition{
		Slug:        stringField(row, "slug"),
		Name:        stringField(row, "name"),
		Description: stringField(row, "description"),
	}
	raw := stringField(row, "variants")
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &d.Variants); err != nil {
			return schema.BadgeDefinition{}, fmt.Errorf("badge definition %s: bad variants: %w", d.Slug, err)
		}
	}
	return d, nil
}

// AllBadgeDefinitions lists the badge catalog ordered by slug.
func AllBadgeDefinitions(ctx context.Context, db store.Store) ([]schema.BadgeDefinition, error) {
	res, err := db.Execute(ctx, "SELECT * FROM badge_definition ORDER BY slug")
	if err != nil {
		return nil, err
	}
	out := make([]schema.BadgeDefinition, 0, len(res.Rows))
	for _, row := range res.Rows {
		d, err := scanBadgeDefinition(row)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// BadgeDefinitionBySlug returns nil (and no error) when absent.
func BadgeDefinitionBySlug(ctx context.Context, db store.Store, slug string) (*schema.BadgeDefinition, error) {
	res, err := db.Execute(ctx, "SELECT * FROM badge_definition WHERE slug = ?", slug)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	d, err := scanBadgeDefinition(res.Rows[0])
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// InsertOrIgnoreBadgeDefinition registers a badge; first write wins.
func InsertOrIgnoreBadgeDefinition(ctx context.Context, db store.Store, d schema.BadgeDefinition) error {
	variants, err := json.Marshal(d.Variants)
	if err != nil {
		return fmt.Errorf("badge definition %s: %w", d.Slug, err)
	}
	_, err = db.Execute(ctx, `INSERT INTO badge_definition
		(slug, name, description, variants)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(slug) DO NOTHING`,
		d.Slug, d.Name, d.Description, string(variants))
	return err
}

// UpsertBadgeDefinition inserts or fully replaces the badge.
func UpsertBadgeDefinition(ctx context.Context, db store.Store, d schema.BadgeDefinition) error {
	variants, err := json.Marshal(d.Variants)
	if err != nil {
		return fmt.Errorf("badge definition %s: %w", d.Slug, err)
	}
	_, err = db.Execute(ctx, `INSERT INTO badge_definition
		(slug, name, description, variants)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			variants = excluded.variants`,
		d.Slug, d.Name, d.Description, string(variants))
	return err
}

func scanContributorBadge(row store.Row) schema.ContributorBadge {
	return schema.ContributorBadge{
		Slug:        stringField(row, "slug"),
		Badge:       stringField(row, "badge"),
		Contributor: stringField(row, "contributor"),
		Variant:     stringField(row, "variant"),
		AchievedOn:  stringField(row, "achieved_on"),
		Meta:        mapField(row, "meta"),
	}
}

// BadgesForContributor lists a contributor's badges ordered by badge
// slug.
func BadgesForContributor(ctx context.Context, db store.Store, username string) ([]schema.ContributorBadge, error) {
	res, err := db.Execute(ctx,
		"SELECT * FROM contributor_badge WHERE contributor = ? ORDER BY badge, slug", username)
	if err != nil {
		return nil, err
	}
	out := make([]schema.ContributorBadge, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, scanContributorBadge(row))
	}
	return out, nil
}

// ContributorBadgeFor fetches a contributor's record for one badge
// regardless of variant; nil (and no error) when absent.
func ContributorBadgeFor(ctx context.Context, db store.Store, badge, username string) (*schema.ContributorBadge, error) {
	res, err := db.Execute(ctx,
		"SELECT * FROM contributor_badge WHERE badge = ? AND contributor = ?", badge, username)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	b := scanContributorBadge(res.Rows[0])
	return &b, nil
}

// BadgeExists reports whether the contributor holds the badge at the
// exact variant.
func BadgeExists(ctx context.Context, db store.Store, badge, username, variant string) (bool, error) {
	res, err := db.Execute(ctx,
		"SELECT COUNT(*) AS count FROM contributor_badge WHERE badge = ? AND contributor = ? AND variant = ?",
		badge, username, variant)
	if err != nil {
		return false, err
	}
	return countResult(res) > 0, nil
}

// AwardBadge records a badge grant with the deterministic slug
// badge__username__variant. Awarding an already-held badge is a no-op.
func AwardBadge(ctx context.Context, db store.Store, b schema.ContributorBadge) error {
	if b.Slug == "" {
		b.Slug = schema.BadgeSlug(b.Badge, b.Contributor, b.Variant)
	}
	meta, err := jsonParam(b.Meta)
	if err != nil {
		return fmt.Errorf("contributor badge %s: %w", b.Slug, err)
	}
	_, err = db.Execute(ctx, `INSERT INTO contributor_badge
		(slug, badge, contributor, variant, achieved_on, meta)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO NOTHING`,
		b.Slug, b.Badge, b.Contributor, b.Variant, b.AchievedOn, meta)
	return err
}

// DeleteContributorBadge removes one badge record by slug.
func DeleteContributorBadge(ctx context.Context, db store.Store, slug string) error {
	_, err := db.Execute(ctx, "DELETE FROM contributor_badge WHERE slug = ?", slug)
	return err
}

// DeleteContributorBadgesFor removes every badge held by a
// contributor.
func DeleteContributorBadgesFor(ctx context.Context, db store.Store, username string) error {
	_, err := db.Execute(ctx, "DELETE FROM contributor_badge WHERE contributor = ?", username)
	return err
}

// UpgradeBadge moves an existing badge record to a new variant. The
// variant must be declared by the badge definition; an unknown variant
// fails with ErrUnknownVariant and leaves the record untouched.
func UpgradeBadge(ctx context.Context, db store.Store, slug, newVariant, achievedOn string, meta map[string]any) error {
	res, err := db.Execute(ctx, "SELECT * FROM contributor_badge WHERE slug = ?", slug)
	if err != nil {
		return err
	}
	if len(res.Rows) == 0 {
		return fmt.Errorf("%w: %s", ErrBadgeNotFound, slug)
	}
	current := scanContributorBadge(res.Rows[0])

	def, err := BadgeDefinitionBySlug(ctx, db, current.Badge)
	if err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("%w: definition %s", ErrBadgeNotFound, current.Badge)
	}
	if _, ok := def.Variants[newVariant]; !ok {
		return fmt.Errorf("%w: %s has no variant %q", ErrUnknownVariant, current.Badge, newVariant)
	}

	metaParam, err := jsonParam(meta)
	if err != nil {
		return fmt.Errorf("contributor badge %s: %w", slug, err)
	}
	_, err = db.Execute(ctx, `UPDATE contributor_badge
		SET variant = ?, achieved_on = ?, meta = ?
		WHERE slug = ?`,
		newVariant, achievedOn, metaParam, slug)
	return err
}
