package allocation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
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

func entry(userId, projectId, week int, h Hours) HourEntry {
	return HourEntry{
		UserId:    userId,
		ProjectId: projectId,
		Week:      week,
		Year:      2025,
		Hours:     h,
		WeekStart: time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC).AddDate(0, 0, (week-1)*7),
		UpdatedBy: "owner@example.com",
	}
}

func TestRepositoryImpl_Upsert(t *testing.T) {
	t.Run("should insert and then replace by key", func(t *testing.T) {
		// given
		ctx, repo, db := setupTestRepository(t)
		userId := test_utils.InsertUser(t, db, "alice@example.com", "Alice", "Smith", false)
		projectId := test_utils.InsertProject(t, db, "Phoenix", 1)

		// when
		_, err := repo.Upsert(ctx, entry(userId, projectId, 10, hours(20, 0, 0)))
		require.NoError(t, err)
		updated, err := repo.Upsert(ctx, entry(userId, projectId, 10, Hours{
			Billable:    decimal.RequireFromString("12.5"),
			NonBillable: decimal.Zero,
			Leave:       decimal.NewFromInt(4),
		}))
		require.NoError(t, err)

		// then
		assert.False(t, updated.UpdatedAt.IsZero())
		entries, err := repo.GetProjectEntries(ctx, projectId, 2025, []int{10})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Phoenix", entries[0].ProjectName)
		assert.True(t, decimal.RequireFromString("12.5").Equal(entries[0].Billable))
		assert.True(t, decimal.RequireFromString("16.5").Equal(entries[0].Total()))
		assert.Equal(t, "owner@example.com", entries[0].UpdatedBy)
		assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), entries[0].WeekStart.UTC())
	})
}

func TestRepositoryImpl_GetUserWeekAllocations(t *testing.T) {
	// given
	ctx, repo, db := setupTestRepository(t)
	userId := test_utils.InsertUser(t, db, "alice@example.com", "Alice", "Smith", false)
	projectA := test_utils.InsertProject(t, db, "Alpha", 1)
	projectB := test_utils.InsertProject(t, db, "Beta", 1)
	test_utils.AddMember(t, db, userId, projectA, "Engineer")
	_, err := repo.Upsert(ctx, entry(userId, projectA, 10, hours(15, 0, 0)))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, entry(userId, projectB, 10, hours(20, 0, 0)))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, entry(userId, projectB, 11, hours(40, 0, 0)))
	require.NoError(t, err)

	// when
	allocations, err := repo.GetUserWeekAllocations(ctx, userId, 10, 2025)

	// then
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	assert.Equal(t, "Beta", allocations[0].ProjectName)
	assert.Equal(t, "", allocations[0].RoleName)
	assert.Equal(t, "Alpha", allocations[1].ProjectName)
	assert.Equal(t, "Engineer", allocations[1].RoleName)
	assert.True(t, decimal.NewFromInt(15).Equal(allocations[1].Total()))
}

func TestRepositoryImpl_GetUserEntries(t *testing.T) {
	// given
	ctx, repo, db := setupTestRepository(t)
	userId := test_utils.InsertUser(t, db, "alice@example.com", "Alice", "Smith", false)
	projectId := test_utils.InsertProject(t, db, "Phoenix", 1)
	for week := 8; week <= 11; week++ {
		_, err := repo.Upsert(ctx, entry(userId, projectId, week, hours(8, 0, 0)))
		require.NoError(t, err)
	}

	// when
	filtered, err := repo.GetUserEntries(ctx, userId, 2025, []int{9, 11})
	require.NoError(t, err)
	all, err := repo.GetUserEntries(ctx, userId, 2025, nil)
	require.NoError(t, err)

	// then
	require.Len(t, filtered, 2)
	assert.Equal(t, 9, filtered[0].Week)
	assert.Equal(t, 11, filtered[1].Week)
	assert.Len(t, all, 4)
}

func TestRepositoryImpl_GetEntry(t *testing.T) {
	t.Run("should find an entry by the id returned from upsert", func(t *testing.T) {
		// given
		ctx, repo, db := setupTestRepository(t)
		userId := test_utils.InsertUser(t, db, "alice@example.com", "Alice", "Smith", false)
		projectId := test_utils.InsertProject(t, db, "Phoenix", 1)
		saved, err := repo.Upsert(ctx, entry(userId, projectId, 10, hours(20, 0, 0)))
		require.NoError(t, err)
		replaced, err := repo.Upsert(ctx, entry(userId, projectId, 10, hours(12, 0, 0)))
		require.NoError(t, err)

		// when
		found, err := repo.GetEntry(ctx, saved.Id)

		// then
		require.NoError(t, err)
		assert.NotZero(t, saved.Id)
		assert.Equal(t, saved.Id, replaced.Id)
		assert.Equal(t, "Phoenix", found.ProjectName)
		assert.True(t, decimal.NewFromInt(12).Equal(found.Total()))
	})

	t.Run("should report a missing entry", func(t *testing.T) {
		ctx, repo, _ := setupTestRepository(t)

		_, err := repo.GetEntry(ctx, 4711)

		assert.ErrorIs(t, err, ErrEntryNotFound)
	})
}
