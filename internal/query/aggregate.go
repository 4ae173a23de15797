package query

import (
	"context"
	"fmt"

	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

func scanGlobalAggregate(row store.Row) (schema.GlobalAggregate, error) {
	raw := stringField(row, "value")
	value, err := schema.UnmarshalAggregateValue([]byte(raw))
	if err != nil {
		return schema.GlobalAggregate{}, fmt.Errorf("global aggregate %s: %w", stringField(row, "slug"), err)
	}
	return schema.GlobalAggregate{
		Slug:        stringField(row, "slug"),
		Name:        stringField(row, "name"),
		Description: stringPtr(row, "description"),
		Value:       value,
		Hidden:      boolField(row, "hidden"),
		Meta:        mapField(row, "meta"),
	}, nil
}

// AllGlobalAggregates lists org-wide aggregates ordered by slug.
func AllGlobalAggregates(ctx context.Context, db store.Store) ([]schema.GlobalAggregate, error) {
	res, err := db.Execute(ctx, "SELECT * FROM global_aggregate ORDER BY slug")
	if err != nil {
		return nil, err
	}
	out := make([]schema.GlobalAggregate, 0, len(res.Rows))
	for _, row := range res.Rows {
		g, err := scanGlobalAggregate(row)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// GlobalAggregateBySlug returns nil (and no error) when absent.
func GlobalAggregateBySlug(ctx context.Context, db store.Store, slug string) (*schema.GlobalAggregate, error) {
	res, err := db.Execute(ctx, "SELECT * FROM global_aggregate WHERE slug = ?", slug)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	g, err := scanGlobalAggregate(res.Rows[0])
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// UpsertGlobalAggregate inserts or fully replaces the aggregate.
func UpsertGlobalAggregate(ctx context.Context, db store.Store, g schema.GlobalAggregate) error {
	if g.Value == nil {
		return fmt.Errorf("global aggregate %s has no value", g.Slug)
	}
	value, err := jsonParam(g.Value)
	if err != nil {
		return fmt.Errorf("global aggregate %s: %w", g.Slug, err)
	}
	meta, err := jsonParam(g.Meta)
	if err != nil {
		return fmt.Errorf("global aggregate %s: %w", g.Slug, err)
	}
	_, err = db.Execute(ctx, `INSERT INTO global_aggregate
		(slug, name, description, value, hidden, meta)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			value = excluded.value,
			hidden = excluded.hidden,
			meta = excluded.meta`,
		g.Slug, g.Name, ptrParam(g.Description), value, g.Hidden, meta)
	return err
}

// DeleteGlobalAggregate removes the row; deleting an absent slug is
// not an error.
func DeleteGlobalAggregate(ctx context.Context, db store.Store, slug string) error {
	_, err := db.Execute(ctx, "DELETE FROM global_aggregate WHERE slug = ?", slug)
	return err
}

func scanContributorAggregateDefinition(row store.Row) schema.ContributorAggregateDefinition {
	return schema.ContributorAggregateDefinition{
		Slug:        stringField(row, "slug"),
		Name:        stringField(row, "name"),
		Description: stringPtr(row, "description"),
		Hidden:      boolField(row, "hidden"),
	}
}

// AllContributorAggregateDefinitions lists the per-contributor metric
// catalog ordered by slug.
func AllContributorAggregateDefinitions(ctx context.Context, db store.Store) ([]schema.ContributorAggregateDefinition, error) {
	res, err := db.Execute(ctx, "SELECT * FROM contributor_aggregate_definition ORDER BY slug")
	if err != nil {
		return nil, err
	}
	out := make([]schema.ContributorAggregateDefinition, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, scanContributorAggregateDefinition(row))
	}
	return out, nil
}

// UpsertContributorAggregateDefinition inserts or fully replaces the
// catalog entry.
func UpsertContributorAggregateDefinition(ctx context.Context, db store.Store, d schema.ContributorAggregateDefinition) error {
	_, err := db.Execute(ctx, `INSERT INTO contributor_aggregate_definition
		(slug, name, description, hidden)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			hidden = excluded.hidden`,
		d.Slug, d.Name, ptrParam(d.Description), d.Hidden)
	return err
}

func scanContributorAggregate(row store.Row) (schema.ContributorAggregate, error) {
	raw := stringField(row, "value")
	value, err := schema.UnmarshalAggregateValue([]byte(raw))
	if err != nil {
		return schema.ContributorAggregate{}, fmt.Errorf("contributor aggregate %s/%s: %w",
			stringField(row, "aggregate"), stringField(row, "contributor"), err)
	}
	return schema.ContributorAggregate{
		Aggregate:   stringField(row, "aggregate"),
		Contributor: stringField(row, "contributor"),
		Value:       value,
		Meta:        mapField(row, "meta"),
	}, nil
}

// ContributorAggregatesFor lists one contributor's aggregate values
// ordered by aggregate slug.
func ContributorAggregatesFor(ctx context.Context, db store.Store, username string) ([]schema.ContributorAggregate, error) {
	res, err := db.Execute(ctx,
		"SELECT * FROM contributor_aggregate WHERE contributor = ? ORDER BY aggregate", username)
	if err != nil {
		return nil, err
	}
	out := make([]schema.ContributorAggregate, 0, len(res.Rows))
	for _, row := range res.Rows {
		a, err := scanContributorAggregate(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ContributorAggregate fetches one (aggregate, contributor) value;
// nil (and no error) when absent.
func ContributorAggregate(ctx context.Context, db store.Store, aggregate, username string) (*schema.ContributorAggregate, error) {
	res, err := db.Execute(ctx,
		"SELECT * FROM contributor_aggregate WHERE aggregate = ? AND contributor = ?", aggregate, username)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	a, err := scanContributorAggregate(res.Rows[0])
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertContributorAggregate inserts or fully replaces the value for
// its (aggregate, contributor) key.
func UpsertContributorAggregate(ctx context.Context, db store.Store, a schema.ContributorAggregate) error {
	if a.Value == nil {
		return fmt.Errorf("contributor aggregate %s/%s has no value", a.Aggregate, a.Contributor)
	}
	value, err := jsonParam(a.Value)
	if err != nil {
		return fmt.Errorf("contributor aggregate %s/%s: %w", a.Aggregate, a.Contributor, err)
	}
	meta, err := jsonParam(a.Meta)
	if err != nil {
		return fmt.Errorf("contributor aggregate %s/%s: %w", a.Aggregate, a.Contributor, err)
	}
	_, err = db.Execute(ctx, `INSERT INTO contributor_aggregate
		(aggregate, contributor, value, meta)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(aggregate, contributor) DO UPDATE SET
			value = excluded.value,
			meta = excluded.meta`,
		a.Aggregate, a.Contributor, value, meta)
	return err
}

// DeleteContributorAggregate removes one (aggregate, contributor)
// value.
func DeleteContributorAggregate(ctx context.Context, db store.Store, aggregate, username string) error {
	_, err := db.Execute(ctx,
		"DELETE FROM contributor_aggregate WHERE aggregate = ? AND contributor = ?", aggregate, username)
	return err
}

// DeleteContributorAggregatesFor removes every aggregate value held by
// a contributor.
func DeleteContributorAggregatesFor(ctx context.Context, db store.Store, username string) error {
	_, err := db.Execute(ctx,
		"DELETE FROM contributor_aggregate WHERE contributor = ?", username)
	return err
}
