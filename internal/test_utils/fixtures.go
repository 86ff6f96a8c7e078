package test_utils

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// InsertUser creates a user row and returns its id.
func InsertUser(t *testing.T, db *pgxpool.Pool, login, firstname, lastname string, admin bool) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO users (login, firstname, lastname, admin) VALUES ($1, $2, $3, $4) RETURNING id`,
		login, firstname, lastname, admin,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// InsertProject creates a project row with the given status and returns its id.
func InsertProject(t *testing.T, db *pgxpool.Pool, name string, status int) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO projects (name, status) VALUES ($1, $2) RETURNING id`, name, status,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// AddMember makes userId a member of projectId holding roleName, creating the role when needed.
func AddMember(t *testing.T, db *pgxpool.Pool, userId, projectId int, roleName string) {
	t.Helper()
	ctx := context.Background()
	var roleId int
	err := db.QueryRow(ctx,
		`INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`,
		roleName,
	).Scan(&roleId)
	require.NoError(t, err)

	var memberId int
	err = db.QueryRow(ctx,
		`INSERT INTO members (user_id, project_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, project_id) DO UPDATE SET user_id = EXCLUDED.user_id RETURNING id`,
		userId, projectId,
	).Scan(&memberId)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `INSERT INTO member_roles (member_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, memberId, roleId)
	require.NoError(t, err)
}
