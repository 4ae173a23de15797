package query

import (
	"context"

	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

func scanActivityDefinition(row store.Row) schema.ActivityDefinition {
	return schema.ActivityDefinition{
		Slug:        stringField(row, "slug"),
		Name:        stringField(row, "name"),
		Description: stringField(row, "description"),
		Points:      intPtr(row, "points"),
		Icon:        stringPtr(row, "icon"),
	}
}

// AllActivityDefinitions lists the activity catalog ordered by slug.
func AllActivityDefinitions(ctx context.Context, db store.Store) ([]schema.ActivityDefinition, error) {
	res, err := db.Execute(ctx, "SELECT * FROM activity_definition ORDER BY slug")
	if err != nil {
		return nil, err
	}
	out := make([]schema.ActivityDefinition, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, scanActivityDefinition(row))
	}
	return out, nil
}

// ActivityDefinitionBySlug returns nil (and no error) when absent.
func ActivityDefinitionBySlug(ctx context.Context, db store.Store, slug string) (*schema.ActivityDefinition, error) {
	res, err := db.Execute(ctx, "SELECT * FROM activity_definition WHERE slug = ?", slug)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	d := scanActivityDefinition(res.Rows[0])
	return &d, nil
}

// InsertOrIgnoreActivityDefinition registers a definition; the first
// write wins so plugins cannot clobber each other's catalogs.
func InsertOrIgnoreActivityDefinition(ctx context.Context, db store.Store, d schema.ActivityDefinition) error {
	_, err := db.Execute(ctx, `INSERT INTO activity_definition
		(slug, name, description, points, icon)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO NOTHING`,
		d.Slug, d.Name, d.Description, ptrParam(d.Points), ptrParam(d.Icon))
	return err
}

// UpsertActivityDefinition inserts or fully replaces the definition.
func UpsertActivityDefinition(ctx context.Context, db store.Store, d schema.ActivityDefinition) error {
	_, err := db.Execute(ctx, `INSERT INTO activity_definition
		(slug, name, description, points, icon)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			points = excluded.points,
			icon = excluded.icon`,
		d.Slug, d.Name, d.Description, ptrParam(d.Points), ptrParam(d.Icon))
	return err
}

// CountActivityDefinitions returns the catalog size.
func CountActivityDefinitions(ctx context.Context, db store.Store) (int, error) {
	res, err := db.Execute(ctx, "SELECT COUNT(*) AS count FROM activity_definition")
	if err != nil {
		return 0, err
	}
	return countResult(res), nil
}
