package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/internal/utils"
	"github.com/tppms/tppms/pkg/user"
)

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// serve routes target through the dashboard routes so that path variables are resolved.
func serve(f *fixture, ctx context.Context, target string) *httptest.ResponseRecorder {
	clock := &utils.MockClock{FixedNow: time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)}
	handler := NewHandler(f.service, clock)
	router := mux.NewRouter()
	router.HandleFunc("/api/admin/dashboard-summary", handler.AdminSummary).Methods("GET")
	router.HandleFunc("/api/admin/user-counts", handler.UserCounts).Methods("GET")
	router.HandleFunc("/api/admin/users/{status}", handler.Users).Methods("GET")
	router.HandleFunc("/api/admin/projects/{status}", handler.Projects).Methods("GET")
	router.HandleFunc("/api/projects/my-po-dashboard", handler.OwnerDashboard).Methods("GET")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var body envelope[T]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	return body.Data
}

func TestHandler_AdminSummary(t *testing.T) {
	t.Run("describes the counts", func(t *testing.T) {
		// given
		f := setup(t)

		// when
		rec := serve(f, as(admin, authz.RoleAdmin), "/api/admin/dashboard-summary")

		// then
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode[SummaryDTO](t, rec)
		assert.Equal(t, CountDTO{Count: 1, Description: "pending approval"}, data.UserManagement.NewUsers)
		assert.Equal(t, 5, data.UserManagement.ActiveUsers.Count)
		assert.Equal(t, 1, data.ProjectManagement.OnHoldProjects.Count)
	})

	t.Run("forbids non admins", func(t *testing.T) {
		f := setup(t)

		rec := serve(f, as(olivia, authz.RoleProjectOwner), "/api/admin/dashboard-summary")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("needs a session", func(t *testing.T) {
		f := setup(t)

		rec := serve(f, context.Background(), "/api/admin/user-counts")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandler_UserCounts(t *testing.T) {
	f := setup(t)

	rec := serve(f, as(admin, authz.RoleAdmin), "/api/admin/user-counts")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, UserCountsDTO{ActiveUsers: 5, NewUsers: 1, InactiveUsers: 1}, decode[UserCountsDTO](t, rec))
}

func TestHandler_Users(t *testing.T) {
	ctx := as(admin, authz.RoleAdmin)

	t.Run("pages the users of a status", func(t *testing.T) {
		// given
		f := setup(t)

		// when
		rec := serve(f, ctx, "/api/admin/users/active?page=2&per_page=2")

		// then
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode[UserListDTO](t, rec)
		require.Len(t, data.Users, 2)
		assert.Equal(t, "carol@example.com", data.Users[0].Email)
		assert.Equal(t, AdminPaginationDTO{Page: 2, PerPage: 2, Total: 5, Pages: 3}, data.Pagination)
	})

	t.Run("searches", func(t *testing.T) {
		f := setup(t)

		rec := serve(f, ctx, "/api/admin/users/inactive?search=gone")

		require.Equal(t, http.StatusOK, rec.Code)
		data := decode[UserListDTO](t, rec)
		require.Len(t, data.Users, 1)
		assert.Equal(t, eve.Id, data.Users[0].Id)
		assert.Equal(t, user.StatusInactive, data.Users[0].Status)
	})

	t.Run("rejects unknown statuses", func(t *testing.T) {
		f := setup(t)

		rec := serve(f, ctx, "/api/admin/users/banned")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects oversized pages", func(t *testing.T) {
		f := setup(t)

		rec := serve(f, ctx, "/api/admin/users/active?per_page=5000")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Projects(t *testing.T) {
	f := setup(t)

	rec := serve(f, as(admin, authz.RoleAdmin), "/api/admin/projects/active")

	require.Equal(t, http.StatusOK, rec.Code)
	data := decode[ProjectListDTO](t, rec)
	require.Len(t, data.Projects, 2)
	assert.Equal(t, "Phoenix", data.Projects[1].Name)
	assert.Equal(t, "Active", data.Projects[1].StatusLabel)
	assert.Equal(t, 4, data.Projects[1].MemberCount)
	assert.Equal(t, 64.0, data.Projects[1].TotalHours)
}

func TestHandler_OwnerDashboard(t *testing.T) {
	ctx := as(olivia, authz.RoleProjectOwner)

	t.Run("reports utilisation with filters echoed", func(t *testing.T) {
		// given
		f := setup(t)
		f.book(t, alice, phoenixId, 41, 40, 0)
		f.book(t, carol, phoenixId, 40, 20, 4)

		// when
		rec := serve(f, ctx, "/api/projects/my-po-dashboard?search=phoenix&sort_by=allocated&sort_order=desc")

		// then
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode[OwnerDashboardDTO](t, rec)
		assert.Equal(t, []int{38, 39, 40, 41}, data.Weeks)
		require.Len(t, data.Projects, 1)
		row := data.Projects[0]
		assert.Equal(t, "Project Owner", row.RoleName)
		assert.Equal(t, 2, row.MemberCount)
		assert.Equal(t, 60.0, row.TotalBillable)
		assert.Equal(t, 4.0, row.TotalLeave)
		assert.Equal(t, 320.0, row.CapacityHours)
		assert.Equal(t, 20.0, row.AllocatedPercentage)
		assert.Equal(t, OwnerPaginationDTO{Page: 1, PageSize: 10, Total: 1, TotalPages: 1}, data.Pagination)
		assert.Equal(t, OwnerFiltersDTO{Year: 2026, Search: "phoenix", Status: FilterAll, SortBy: SortByAllocated, SortOrder: "desc"}, data.Filters)
	})

	t.Run("takes explicit weeks", func(t *testing.T) {
		f := setup(t)

		rec := serve(f, ctx, "/api/projects/my-po-dashboard?year=2026&weeks=30,31")

		require.Equal(t, http.StatusOK, rec.Code)
		data := decode[OwnerDashboardDTO](t, rec)
		assert.Equal(t, []int{30, 31}, data.Weeks)
		assert.Len(t, data.Projects, 2)
	})

	t.Run("rejects an unknown sort order", func(t *testing.T) {
		f := setup(t)

		rec := serve(f, ctx, "/api/projects/my-po-dashboard?sort_order=sideways")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an unknown status filter", func(t *testing.T) {
		f := setup(t)

		rec := serve(f, ctx, "/api/projects/my-po-dashboard?status=paused")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("forbids team members", func(t *testing.T) {
		f := setup(t)

		rec := serve(f, as(alice, authz.RoleTeamMember), "/api/projects/my-po-dashboard")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
