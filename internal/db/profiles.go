package db

import (
	"context"

	"github.com/google/uuid"
)

const getProfileByAuthUserID = `-- name: GetProfileByAuthUserID :one
SELECT id, auth_user_id, email, created_at, updated_at
FROM profiles
WHERE auth_user_id = $1
`

// GetProfileByAuthUserID looks up the profile owned by a Supabase auth user.
func (q *Queries) GetProfileByAuthUserID(ctx context.Context, authUserID uuid.UUID) (Profile, error) {
	row := q.db.QueryRow(ctx, getProfileByAuthUserID, authUserID)
	var i Profile
	err := row.Scan(
		&i.ID,
		&i.AuthUserID,
		&i.Email,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getProfile = `-- name: GetProfile :one
SELECT id, auth_user_id, email, created_at, updated_at
FROM profiles
WHERE id = $1
`

// GetProfile looks up a profile by its primary key.
func (q *Queries) GetProfile(ctx context.Context, id uuid.UUID) (Profile, error) {
	row := q.db.QueryRow(ctx, getProfile, id)
	var i Profile
	err := row.Scan(
		&i.ID,
		&i.AuthUserID,
		&i.Email,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
