package bench

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/user"
)

func setup(t *testing.T) (*ServiceImpl, *RepositoryStub) {
	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)
	repo := NewRepositoryStub()
	return NewService(repo, enforcer, 40), repo
}

func as(role authz.Role) context.Context {
	return authz.WithRole(user.WithUser(context.Background(), user.User{Id: 1, Login: "someone@example.com"}), role)
}

func TestServiceImpl_Summary(t *testing.T) {
	t.Run("counts the requested week", func(t *testing.T) {
		// given
		service, repo := setup(t)
		repo.PutWeek(2026, 41,
			userWeek(1, "Alice", 40, 0, 0),
			userWeek(2, "Bob", 0, 0, 8),
			userWeek(3, "Carol", 30, 15, 0),
		)

		// when
		summary, err := service.Summary(as(authz.RoleAdmin), 2026, 41)

		// then
		require.NoError(t, err)
		assert.Equal(t, Summary{FullyBenched: 1, PartialBenched: 1, NonBillable: 1, OverUtilised: 1, ActualYear: 2026, ActualWeek: 41}, summary)
	})

	t.Run("falls back to the most recent week with data", func(t *testing.T) {
		// given
		service, repo := setup(t)
		repo.PutWeek(2025, 52, userWeek(1, "Alice", 0, 0, 0))
		repo.PutWeek(2026, 3, userWeek(1, "Alice", 20, 0, 0))

		// when
		summary, err := service.Summary(as(authz.RoleAdmin), 2026, 41)

		// then
		require.NoError(t, err)
		assert.Equal(t, 2026, summary.ActualYear)
		assert.Equal(t, 3, summary.ActualWeek)
		assert.Equal(t, 1, summary.PartialBenched)
	})

	t.Run("reports the requested week when nothing is stored", func(t *testing.T) {
		service, _ := setup(t)

		summary, err := service.Summary(as(authz.RoleAdmin), 2026, 41)

		require.NoError(t, err)
		assert.Equal(t, Summary{ActualYear: 2026, ActualWeek: 41}, summary)
	})

	t.Run("admin only", func(t *testing.T) {
		service, _ := setup(t)

		_, err := service.Summary(as(authz.RoleProjectOwner), 2026, 41)

		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("rejects an invalid week", func(t *testing.T) {
		service, _ := setup(t)

		_, err := service.Summary(as(authz.RoleAdmin), 2026, 0)

		assert.True(t, rest.IsValidationError(err))
	})
}

func TestServiceImpl_Users(t *testing.T) {
	// given
	service, repo := setup(t)
	repo.PutWeek(2026, 41,
		userWeek(1, "Alice", 30, 5, 0),
		userWeek(2, "Bob", 0, 0, 8),
		userWeek(3, "Carol", 20, 10, 0),
	)

	// when
	report, err := service.Users(as(authz.RoleAdmin), CategoryNonBillable, 2026, 41)

	// then
	require.NoError(t, err)
	assert.Equal(t, CategoryNonBillable, report.Category)
	require.Len(t, report.Users, 2)
	assert.Equal(t, "Alice", report.Users[0].Name)
	assert.Equal(t, "Carol", report.Users[1].Name)
}

func TestServiceImpl_SaveRemark(t *testing.T) {
	t.Run("stores a trimmed remark", func(t *testing.T) {
		// given
		service, repo := setup(t)

		// when
		saved, err := service.SaveRemark(as(authz.RoleAdmin), Remark{UserId: 2, Week: 41, Remark: "  Internal training  "})

		// then
		require.NoError(t, err)
		assert.Equal(t, "Internal training", saved.Remark)
		stored, ok := repo.Remark(2, 41)
		require.True(t, ok)
		assert.Equal(t, "Internal training", stored)
	})

	t.Run("remark shows up in the non-billable report", func(t *testing.T) {
		service, repo := setup(t)
		repo.PutWeek(2026, 41, userWeek(2, "Bob", 10, 20, 0))
		_, err := service.SaveRemark(as(authz.RoleAdmin), Remark{UserId: 2, Week: 41, Remark: "Pre-sales"})
		require.NoError(t, err)

		report, err := service.Users(as(authz.RoleAdmin), CategoryNonBillable, 2026, 41)

		require.NoError(t, err)
		require.Len(t, report.Users, 1)
		assert.Equal(t, "Pre-sales", report.Users[0].Remark)
	})

	t.Run("rejects remarks above 250 characters", func(t *testing.T) {
		service, repo := setup(t)

		_, err := service.SaveRemark(as(authz.RoleAdmin), Remark{UserId: 2, Week: 41, Remark: strings.Repeat("x", 251)})

		assert.True(t, rest.IsValidationError(err))
		_, ok := repo.Remark(2, 41)
		assert.False(t, ok)
	})

	t.Run("accepts exactly 250 characters", func(t *testing.T) {
		service, _ := setup(t)

		_, err := service.SaveRemark(as(authz.RoleAdmin), Remark{UserId: 2, Week: 41, Remark: strings.Repeat("x", 250)})

		assert.NoError(t, err)
	})

	t.Run("rejects weeks outside 1-53", func(t *testing.T) {
		service, _ := setup(t)

		_, err := service.SaveRemark(as(authz.RoleAdmin), Remark{UserId: 2, Week: 54, Remark: "x"})

		assert.True(t, rest.IsValidationError(err))
	})

	t.Run("admin only", func(t *testing.T) {
		service, _ := setup(t)

		_, err := service.SaveRemark(as(authz.RoleProjectOwner), Remark{UserId: 2, Week: 41, Remark: "x"})

		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}
