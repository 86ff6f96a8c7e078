package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/internal/utils"
	"github.com/tppms/tppms/pkg/allocation"
	"github.com/tppms/tppms/pkg/project"
	"github.com/tppms/tppms/pkg/user"
)

const (
	phoenixId = 10
	atlasId   = 11
	legacyId  = 12
	oldId     = 13
)

var (
	admin  = user.User{Id: 1, Login: "admin@example.com", Firstname: "Ada", Lastname: "Admin", Admin: true, Status: user.StatusActive}
	olivia = user.User{Id: 2, Login: "olivia@example.com", Firstname: "Olivia", Lastname: "Owner", Status: user.StatusActive}
	alice  = user.User{Id: 3, Login: "alice@example.com", Firstname: "Alice", Lastname: "Smith", Status: user.StatusActive}
	carol  = user.User{Id: 4, Login: "carol@example.com", Firstname: "Carol", Lastname: "White", Status: user.StatusActive}
	dave   = user.User{Id: 5, Login: "dave@example.com", Firstname: "Dave", Lastname: "Brown", Status: user.StatusActive}
	bob    = user.User{Id: 6, Login: "bob@example.com", Firstname: "Bob", Lastname: "Jones", Status: user.StatusNew}
	eve    = user.User{Id: 7, Login: "eve@example.com", Firstname: "Eve", Lastname: "Gone", Status: user.StatusInactive}
)

type fixture struct {
	service     *ServiceImpl
	projects    *project.RepositoryStub
	allocations *allocation.RepositoryStub
}

func member(u user.User) project.Member {
	return project.Member{UserId: u.Id, Login: u.Login, Firstname: u.Firstname, Lastname: u.Lastname}
}

// setup freezes time in week 41 of 2026. Olivia owns Phoenix (Alice and Carol engineering, Bob HR)
// and Atlas (Dave engineering). Legacy is on hold and Old is completed.
func setup(t *testing.T) *fixture {
	clock := &utils.MockClock{FixedNow: time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)}
	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)

	users := user.NewStubUserRepository()
	for _, u := range []user.User{admin, olivia, alice, carol, dave, bob, eve} {
		users.Put(u)
	}

	projects := project.NewRepositoryStub()
	projects.AddProject(project.Project{Id: phoenixId, Name: "Phoenix", Description: "Payments rewrite", Status: project.StatusActive})
	projects.AddProject(project.Project{Id: atlasId, Name: "Atlas", Description: "Maps", Status: project.StatusActive})
	projects.AddProject(project.Project{Id: legacyId, Name: "Legacy", Status: project.StatusOnHold})
	projects.AddProject(project.Project{Id: oldId, Name: "Old", Status: project.StatusCompleted})
	projects.AddMember(phoenixId, member(olivia), "Project Owner")
	projects.AddMember(phoenixId, member(alice), "Engineer")
	projects.AddMember(phoenixId, member(carol), "Testing Engineer")
	projects.AddMember(phoenixId, member(bob), "HR")
	projects.AddMember(atlasId, member(olivia), "Project Owner")
	projects.AddMember(atlasId, member(dave), "Engineer")
	projects.SetTotalHours(phoenixId, decimal.RequireFromString("64"))

	allocations := allocation.NewRepositoryStub()
	projectService := project.NewService(projects, enforcer)
	allocationService := allocation.NewService(allocations, projectService, allocation.NewGate(clock, enforcer), enforcer, nil)

	return &fixture{
		service:     NewService(user.NewUserService(users), projects, projectService, allocationService, enforcer, clock, 40),
		projects:    projects,
		allocations: allocations,
	}
}

func (f *fixture) book(t *testing.T, u user.User, projectId, week int, billable, leave float64) {
	t.Helper()
	_, err := f.allocations.Upsert(context.Background(), allocation.HourEntry{
		UserId: u.Id, ProjectId: projectId, Week: week, Year: 2026, Hours: allocation.NewHours(billable, 0, leave),
	})
	require.NoError(t, err)
}

func as(u user.User, role authz.Role) context.Context {
	return authz.WithRole(user.WithUser(context.Background(), u), role)
}

func ownerQuery() OwnerQuery {
	return OwnerQuery{Year: 2026, Status: FilterAll, SortBy: SortByName, Page: Page{Number: 1, Size: DefaultOwnerPageSize}}
}

func TestServiceImpl_AdminSummary(t *testing.T) {
	t.Run("counts users and projects per status", func(t *testing.T) {
		// given
		f := setup(t)

		// when
		summary, err := f.service.AdminSummary(as(admin, authz.RoleAdmin))

		// then
		require.NoError(t, err)
		assert.Equal(t, UserCounts{Active: 5, New: 1, Inactive: 1}, summary.Users)
		assert.Equal(t, ProjectCounts{Active: 2, OnHold: 1, Completed: 1}, summary.Projects)
	})

	t.Run("is reserved to admins", func(t *testing.T) {
		f := setup(t)

		_, err := f.service.AdminSummary(as(olivia, authz.RoleProjectOwner))

		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestServiceImpl_UsersByStatus(t *testing.T) {
	ctx := as(admin, authz.RoleAdmin)

	t.Run("lists users of a status ordered by name", func(t *testing.T) {
		// given
		f := setup(t)

		// when
		listing, err := f.service.UsersByStatus(ctx, user.StatusActive, "", Page{Number: 1, Size: 20})

		// then
		require.NoError(t, err)
		names := make([]string, 0, len(listing.Items))
		for _, u := range listing.Items {
			names = append(names, u.Firstname)
		}
		assert.Equal(t, []string{"Ada", "Alice", "Carol", "Dave", "Olivia"}, names)
		assert.Equal(t, Pagination{Page: 1, Size: 20, Total: 5, Pages: 1}, listing.Pagination)
	})

	t.Run("searches names and logins ignoring case", func(t *testing.T) {
		f := setup(t)

		byName, err := f.service.UsersByStatus(ctx, user.StatusActive, "SMITH", Page{Number: 1, Size: 20})
		require.NoError(t, err)
		byLogin, err := f.service.UsersByStatus(ctx, user.StatusNew, "bob@", Page{Number: 1, Size: 20})
		require.NoError(t, err)

		require.Len(t, byName.Items, 1)
		assert.Equal(t, alice.Id, byName.Items[0].Id)
		require.Len(t, byLogin.Items, 1)
		assert.Equal(t, bob.Id, byLogin.Items[0].Id)
	})

	t.Run("pages through the result", func(t *testing.T) {
		f := setup(t)

		second, err := f.service.UsersByStatus(ctx, user.StatusActive, "", Page{Number: 2, Size: 2})
		require.NoError(t, err)
		beyond, err := f.service.UsersByStatus(ctx, user.StatusActive, "", Page{Number: 4, Size: 2})
		require.NoError(t, err)

		require.Len(t, second.Items, 2)
		assert.Equal(t, "Carol", second.Items[0].Firstname)
		assert.Equal(t, 3, second.Pagination.Pages)
		assert.Empty(t, beyond.Items)
		assert.Equal(t, 5, beyond.Pagination.Total)
	})

	t.Run("rejects an empty page", func(t *testing.T) {
		f := setup(t)

		_, err := f.service.UsersByStatus(ctx, user.StatusActive, "", Page{Number: 0, Size: 20})

		assert.True(t, rest.IsValidationError(err))
	})

	t.Run("is reserved to admins", func(t *testing.T) {
		f := setup(t)

		_, err := f.service.UsersByStatus(as(alice, authz.RoleTeamMember), user.StatusActive, "", Page{Number: 1, Size: 20})

		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestServiceImpl_ProjectsByStatus(t *testing.T) {
	ctx := as(admin, authz.RoleAdmin)

	t.Run("lists projects with member counts and booked hours", func(t *testing.T) {
		// given
		f := setup(t)

		// when
		listing, err := f.service.ProjectsByStatus(ctx, project.StatusActive, "", Page{Number: 1, Size: 20})

		// then
		require.NoError(t, err)
		require.Len(t, listing.Items, 2)
		assert.Equal(t, "Atlas", listing.Items[0].Name)
		assert.Equal(t, 2, listing.Items[0].MemberCount)
		assert.Equal(t, "Phoenix", listing.Items[1].Name)
		assert.Equal(t, 4, listing.Items[1].MemberCount)
		assert.True(t, decimal.NewFromInt(64).Equal(listing.Items[1].TotalHours))
	})

	t.Run("searches descriptions", func(t *testing.T) {
		f := setup(t)

		listing, err := f.service.ProjectsByStatus(ctx, project.StatusActive, "payments", Page{Number: 1, Size: 20})

		require.NoError(t, err)
		require.Len(t, listing.Items, 1)
		assert.Equal(t, phoenixId, listing.Items[0].Id)
	})

	t.Run("uses the completed status", func(t *testing.T) {
		f := setup(t)

		listing, err := f.service.ProjectsByStatus(ctx, project.StatusCompleted, "", Page{Number: 1, Size: 20})

		require.NoError(t, err)
		require.Len(t, listing.Items, 1)
		assert.Equal(t, "Old", listing.Items[0].Name)
	})
}

func TestServiceImpl_OwnerDashboard(t *testing.T) {
	ctx := as(olivia, authz.RoleProjectOwner)

	// Phoenix books 64h for 2 team members, Atlas 80h for 1, both over the four weeks ending in week 41.
	bookings := func(t *testing.T, f *fixture) {
		f.book(t, alice, phoenixId, 41, 40, 0)
		f.book(t, carol, phoenixId, 40, 20, 4)
		f.book(t, bob, phoenixId, 41, 40, 0)
		f.book(t, dave, atlasId, 40, 40, 0)
		f.book(t, dave, atlasId, 41, 32, 8)
		f.book(t, dave, atlasId, 30, 40, 0)
	}

	t.Run("totals owned projects over the current display window", func(t *testing.T) {
		// given
		f := setup(t)
		bookings(t, f)

		// when
		dashboard, err := f.service.OwnerDashboard(ctx, ownerQuery())

		// then
		require.NoError(t, err)
		assert.Equal(t, []int{38, 39, 40, 41}, dashboard.Weeks)
		require.Len(t, dashboard.Projects.Items, 2)

		atlas := dashboard.Projects.Items[0]
		assert.Equal(t, "Atlas", atlas.Project.Name)
		assert.Equal(t, "Project Owner", atlas.Project.RoleName)
		assert.Equal(t, 1, atlas.MemberCount)
		assert.Equal(t, "80", atlas.Totals.Total.String())
		assert.Equal(t, "160", atlas.Capacity.String())
		assert.Equal(t, "50", atlas.AllocatedPercentage.String())

		phoenix := dashboard.Projects.Items[1]
		assert.Equal(t, 2, phoenix.MemberCount, "HR is not part of the team")
		assert.Equal(t, "64", phoenix.Totals.Total.String())
		assert.Equal(t, "4", phoenix.Totals.Leave.String())
		assert.Equal(t, "320", phoenix.Capacity.String())
		assert.Equal(t, "20", phoenix.AllocatedPercentage.String())
		assert.Equal(t, "80", phoenix.NotAllocatedPercentage.String())
	})

	t.Run("explicit weeks win over the month", func(t *testing.T) {
		f := setup(t)
		bookings(t, f)
		query := ownerQuery()
		query.Month = 7
		query.Weeks = []int{30}

		dashboard, err := f.service.OwnerDashboard(ctx, query)

		require.NoError(t, err)
		assert.Equal(t, []int{30}, dashboard.Weeks)
		assert.Equal(t, "100", dashboard.Projects.Items[0].AllocatedPercentage.String())
		assert.True(t, dashboard.Projects.Items[1].Totals.Total.IsZero())
	})

	t.Run("uses the weeks of the month", func(t *testing.T) {
		f := setup(t)
		query := ownerQuery()
		query.Month = 10

		dashboard, err := f.service.OwnerDashboard(ctx, query)

		require.NoError(t, err)
		assert.Equal(t, []int{39, 40, 41, 42, 43}, dashboard.Weeks)
	})

	t.Run("sorts by allocated hours descending", func(t *testing.T) {
		f := setup(t)
		f.book(t, alice, phoenixId, 41, 40, 0)
		f.book(t, carol, phoenixId, 41, 40, 0)
		f.book(t, dave, atlasId, 41, 8, 0)
		query := ownerQuery()
		query.SortBy = SortByAllocated
		query.Descending = true

		dashboard, err := f.service.OwnerDashboard(ctx, query)

		require.NoError(t, err)
		assert.Equal(t, "Phoenix", dashboard.Projects.Items[0].Project.Name)
		assert.Equal(t, "Atlas", dashboard.Projects.Items[1].Project.Name)
	})

	t.Run("sorts by the unallocated share", func(t *testing.T) {
		f := setup(t)
		bookings(t, f)
		query := ownerQuery()
		query.SortBy = SortByNotAllocated

		dashboard, err := f.service.OwnerDashboard(ctx, query)

		require.NoError(t, err)
		assert.Equal(t, "Atlas", dashboard.Projects.Items[0].Project.Name)
	})

	t.Run("filters by search and status", func(t *testing.T) {
		f := setup(t)
		searched := ownerQuery()
		searched.Search = "PHO"
		onHold := ownerQuery()
		onHold.Status = FilterOnHold

		bySearch, err := f.service.OwnerDashboard(ctx, searched)
		require.NoError(t, err)
		byStatus, err := f.service.OwnerDashboard(ctx, onHold)
		require.NoError(t, err)

		require.Len(t, bySearch.Projects.Items, 1)
		assert.Equal(t, phoenixId, bySearch.Projects.Items[0].Project.Id)
		assert.Empty(t, byStatus.Projects.Items)
	})

	t.Run("pages the projects", func(t *testing.T) {
		f := setup(t)
		query := ownerQuery()
		query.Page = Page{Number: 2, Size: 1}

		dashboard, err := f.service.OwnerDashboard(ctx, query)

		require.NoError(t, err)
		require.Len(t, dashboard.Projects.Items, 1)
		assert.Equal(t, "Phoenix", dashboard.Projects.Items[0].Project.Name)
		assert.Equal(t, Pagination{Page: 2, Size: 1, Total: 2, Pages: 2}, dashboard.Projects.Pagination)
	})

	t.Run("rejects unknown sort keys", func(t *testing.T) {
		f := setup(t)
		query := ownerQuery()
		query.SortBy = "budget"

		_, err := f.service.OwnerDashboard(ctx, query)

		assert.True(t, rest.IsValidationError(err))
	})

	t.Run("is reserved to project owners", func(t *testing.T) {
		f := setup(t)

		_, err := f.service.OwnerDashboard(as(alice, authz.RoleTeamMember), ownerQuery())

		assert.ErrorIs(t, err, project.ErrAccessDenied)
	})
}

func TestUtilisation(t *testing.T) {
	allocated, notAllocated := Utilisation(decimal.NewFromInt(50), decimal.NewFromInt(150))
	assert.Equal(t, "33.3", allocated.String())
	assert.Equal(t, "66.7", notAllocated.String())

	allocated, notAllocated = Utilisation(decimal.NewFromInt(200), decimal.NewFromInt(160))
	assert.Equal(t, "100", allocated.String())
	assert.True(t, notAllocated.IsZero())

	allocated, _ = Utilisation(decimal.NewFromInt(8), decimal.Zero)
	assert.True(t, allocated.IsZero())
}
