package project

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/tppms/tppms/internal/test_utils"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl, *pgxpool.Pool) {
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	return ctx, NewRepo(db), db
}

func TestRepositoryImpl_ListOwnedProjects(t *testing.T) {
	// given
	ctx, repo, db := setupTestRepository(t)
	owner := test_utils.InsertUser(t, db, "owner@example.com", "Olivia", "Owner", false)
	phoenix := test_utils.InsertProject(t, db, "Phoenix", StatusActive)
	atlas := test_utils.InsertProject(t, db, "Atlas", StatusActive)
	closed := test_utils.InsertProject(t, db, "Closed", StatusCompleted)
	test_utils.AddMember(t, db, owner, phoenix, "Project Owner")
	test_utils.AddMember(t, db, owner, atlas, "Engineer")
	test_utils.AddMember(t, db, owner, closed, "Project Creator")

	// when
	owned, err := repo.ListOwnedProjects(ctx, owner)

	// then
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, phoenix, owned[0].Id)
	assert.Equal(t, "Project Owner", owned[0].RoleName)
}

func TestRepositoryImpl_GetProjectMembers(t *testing.T) {
	// given
	ctx, repo, db := setupTestRepository(t)
	alice := test_utils.InsertUser(t, db, "alice@example.com", "Alice", "Smith", false)
	bob := test_utils.InsertUser(t, db, "bob@example.com", "Bob", "Jones", false)
	project := test_utils.InsertProject(t, db, "Phoenix", StatusActive)
	test_utils.AddMember(t, db, alice, project, "Engineer")
	test_utils.AddMember(t, db, bob, project, "HR")
	test_utils.AddMember(t, db, bob, project, "Project Owner")

	// when
	members, err := repo.GetProjectMembers(ctx, project)

	// then
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, alice, members[0].UserId)
	assert.Equal(t, []string{"Engineer"}, members[0].Roles)
	assert.Equal(t, []string{"HR", "Project Owner"}, members[1].Roles)

	isMember, err := repo.IsMember(ctx, alice, project)
	require.NoError(t, err)
	assert.True(t, isMember)
}

func TestRepositoryImpl_GetProject(t *testing.T) {
	ctx, repo, db := setupTestRepository(t)
	id := test_utils.InsertProject(t, db, "Phoenix", StatusActive)

	p, err := repo.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Phoenix", p.Name)

	_, err = repo.GetProject(ctx, id+1000)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestRepositoryImpl_ListSummaries(t *testing.T) {
	// given
	ctx, repo, db := setupTestRepository(t)
	alice := test_utils.InsertUser(t, db, "alice@example.com", "Alice", "Smith", false)
	bob := test_utils.InsertUser(t, db, "bob@example.com", "Bob", "Jones", false)
	phoenix := test_utils.InsertProject(t, db, "Phoenix", StatusOnHold)
	test_utils.InsertProject(t, db, "Atlas", StatusActive)
	test_utils.InsertProject(t, db, "Empty", StatusOnHold)
	test_utils.AddMember(t, db, alice, phoenix, "Engineer")
	test_utils.AddMember(t, db, bob, phoenix, "Project Owner")
	for week, hours := range map[int]string{10: "12.5", 11: "20"} {
		_, err := db.Exec(ctx, `INSERT INTO user_allocation (year, week, week_start, user_id, project_id, billable_hrs, leave_hrs)
			VALUES (2025, $1, '2025-03-10', $2, $3, $4::numeric, 2)`, week, alice, phoenix, hours)
		require.NoError(t, err)
	}

	// when
	summaries, err := repo.ListSummaries(ctx, StatusOnHold)
	require.NoError(t, err)
	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)

	// then
	require.Len(t, summaries, 2)
	assert.Equal(t, "Empty", summaries[0].Name)
	assert.Equal(t, 0, summaries[0].MemberCount)
	assert.True(t, summaries[0].TotalHours.IsZero())
	assert.Equal(t, "Phoenix", summaries[1].Name)
	assert.Equal(t, 2, summaries[1].MemberCount)
	assert.Equal(t, "36.5", summaries[1].TotalHours.String())
	assert.Equal(t, map[int]int{StatusActive: 1, StatusOnHold: 2}, counts)
}
