package query

import (
	"context"
	"fmt"

	"github.com/tallyboard/tally/internal/store"
	"github.com/tallyboard/tally/schema"
)

func scanContributor(row store.Row) schema.Contributor {
	return schema.Contributor{
		Username:       stringField(row, "username"),
		Name:           stringPtr(row, "name"),
		Role:           stringPtr(row, "role"),
		Title:          stringPtr(row, "title"),
		AvatarURL:      stringPtr(row, "avatar_url"),
		Bio:            stringPtr(row, "bio"),
		SocialProfiles: stringMapField(row, "social_profiles"),
		JoiningDate:    stringPtr(row, "joining_date"),
		Meta:           mapField(row, "meta"),
	}
}

func contributorParams(c schema.Contributor) ([]any, error) {
	profiles, err := jsonParam(c.SocialProfiles)
	if err != nil {
		return nil, fmt.Errorf("contributor %s: %w", c.Username, err)
	}
	meta, err := jsonParam(c.Meta)
	if err != nil {
		return nil, fmt.Errorf("contributor %s: %w", c.Username, err)
	}
	return []any{
		c.Username, ptrParam(c.Name), ptrParam(c.Role), ptrParam(c.Title),
		ptrParam(c.AvatarURL), ptrParam(c.Bio), profiles, ptrParam(c.JoiningDate), meta,
	}, nil
}

// AllContributors lists every contributor ordered by username.
func AllContributors(ctx context.Context, db store.Store) ([]schema.Contributor, error) {
	res, err := db.Execute(ctx, "SELECT * FROM contributor ORDER BY username")
	if err != nil {
		return nil, err
	}
	out := make([]schema.Contributor, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, scanContributor(row))
	}
	return out, nil
}

// ContributorByUsername returns nil (and no error) when absent.
func ContributorByUsername(ctx context.Context, db store.Store, username string) (*schema.Contributor, error) {
	res, err := db.Execute(ctx, "SELECT * FROM contributor WHERE username = ?", username)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	c := scanContributor(res.Rows[0])
	return &c, nil
}

// ContributorsByRole lists contributors with the given role.
func ContributorsByRole(ctx context.Context, db store.Store, role string) ([]schema.Contributor, error) {
	res, err := db.Execute(ctx, "SELECT * FROM contributor WHERE role = ? ORDER BY username", role)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Contributor, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, scanContributor(row))
	}
	return out, nil
}

// InsertOrIgnoreContributor writes the row only if the username is new.
func InsertOrIgnoreContributor(ctx context.Context, db store.Store, c schema.Contributor) error {
	params, err := contributorParams(c)
	if err != nil {
		return err
	}
	_, err = db.Execute(ctx, `INSERT INTO contributor
		(username, name, role, title, avatar_url, bio, social_profiles, joining_date, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO NOTHING`, params...)
	return err
}

// UpsertContributor inserts or fully replaces the row, including
// nulling out fields the new value omits.
func UpsertContributor(ctx context.Context, db store.Store, c schema.Contributor) error {
	params, err := contributorParams(c)
	if err != nil {
		return err
	}
	_, err = db.Execute(ctx, `INSERT INTO contributor
		(username, name, role, title, avatar_url, bio, social_profiles, joining_date, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			title = excluded.title,
			avatar_url = excluded.avatar_url,
			bio = excluded.bio,
			social_profiles = excluded.social_profiles,
			joining_date = excluded.joining_date,
			meta = excluded.meta`, params...)
	return err
}

// DeleteContributor removes the row; deleting an absent row is not an
// error.
func DeleteContributor(ctx context.Context, db store.Store, username string) error {
	_, err := db.Execute(ctx, "DELETE FROM contributor WHERE username = ?", username)
	return err
}

// CountContributors returns the total number of contributors.
func CountContributors(ctx context.Context, db store.Store) (int, error) {
	res, err := db.Execute(ctx, "SELECT COUNT(*) AS count FROM contributor")
	if err != nil {
		return 0, err
	}
	return countResult(res), nil
}
