package overallocation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tppms/tppms/pkg/allocation"
)

// checkResponse carries the user's stored week, before the proposal is applied:
// Phoenix 20h and Atlas 15h, with 30h proposed on Phoenix.
const checkResponse = `{
  "success": true,
  "data": {
    "user_id": 1,
    "week": 41,
    "year": 2026,
    "current_project_id": 10,
    "current_total": 35,
    "new_total": 45,
    "is_overallocated": true,
    "over_by": 5,
    "limit": 40,
    "current_project_hours": 20,
    "new_project_hours": 30,
    "allocations": [
      {"project_id": 10, "project_name": "Phoenix", "billable_hrs": 20, "non_billable_hrs": 0, "leave_hrs": 0, "total_hours": 20},
      {"project_id": 20, "project_name": "Atlas", "billable_hrs": 10, "non_billable_hrs": 5, "leave_hrs": 0, "total_hours": 15}
    ]
  }
}`

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func serve(t *testing.T, handler http.HandlerFunc) *RemoteChecker {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewRemoteChecker(server.URL+"/", time.Second, limit40)
}

func TestRemoteChecker_Check(t *testing.T) {
	t.Run("maps a successful response", func(t *testing.T) {
		// given
		var query map[string]string
		checker := serve(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, checkPath, r.URL.Path)
			query = map[string]string{}
			for key := range r.URL.Query() {
				query[key] = r.URL.Query().Get(key)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(checkResponse))
		})

		// when
		result, err := checker.Check(context.Background(), proposal(phoenix, 25, 5, 0))

		// then
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"user_id":            "1",
			"week":               "41",
			"year":               "2026",
			"current_project_id": "10",
			"new_billable":       "25",
			"new_non_billable":   "5",
			"new_leave":          "0",
		}, query)
		assert.True(t, result.IsOverallocated)
		hours(t, 45, result.NewTotal)
		hours(t, 5, result.OverBy)
		hours(t, 40, result.Limit)
		hours(t, 35, result.CurrentTotal)
		hours(t, 20, result.CurrentProjectHours)
		require.Len(t, result.Allocations, 2)
		assert.Equal(t, "Phoenix", result.Allocations[0].ProjectName)
		assert.True(t, result.Allocations[0].IsCurrentProject)
		hours(t, 30, result.Allocations[0].Total())
		assert.False(t, result.Allocations[1].IsCurrentProject)
		hours(t, 15, result.Allocations[1].Total())
	})

	t.Run("rows sum to the new total after the proposal is applied", func(t *testing.T) {
		// given
		checker := serve(t, respond(checkResponse))

		// when
		result, err := checker.Check(context.Background(), proposal(phoenix, 30, 0, 0))

		// then
		require.NoError(t, err)
		sum := decimal.Zero
		for _, row := range result.Allocations {
			sum = sum.Add(row.Total())
		}
		assert.True(t, sum.Equal(result.NewTotal), "rows sum to %s, new total is %s", sum, result.NewTotal)
	})

	t.Run("adds the edited project when it has no stored row", func(t *testing.T) {
		// given
		checker := serve(t, respond(`{"success": true, "data": {
			"new_total": 45, "is_overallocated": true, "limit": 40,
			"allocations": [{"project_id": 20, "project_name": "Atlas", "billable_hrs": 10, "non_billable_hrs": 5, "leave_hrs": 0}]
		}}`))

		// when
		result, err := checker.Check(context.Background(), proposal(phoenix, 30, 0, 0))

		// then
		require.NoError(t, err)
		require.Len(t, result.Allocations, 2)
		assert.Equal(t, phoenix, result.Allocations[0].ProjectId)
		assert.True(t, result.Allocations[0].IsCurrentProject)
		hours(t, 30, result.Allocations[0].Total())
		hours(t, 15, result.CurrentTotal)
		hours(t, 45, result.NewTotal)
	})

	t.Run("accepts rows that already carry the proposal", func(t *testing.T) {
		checker := serve(t, respond(`{"success": true, "data": {
			"new_total": 45, "is_overallocated": true, "limit": 40,
			"allocations": [
				{"project_id": 10, "project_name": "Phoenix", "billable_hrs": 30, "non_billable_hrs": 0, "leave_hrs": 0},
				{"project_id": 20, "project_name": "Atlas", "billable_hrs": 10, "non_billable_hrs": 5, "leave_hrs": 0}
			]
		}}`))

		result, err := checker.Check(context.Background(), proposal(phoenix, 30, 0, 0))

		require.NoError(t, err)
		hours(t, 45, result.NewTotal)
	})

	t.Run("uses the configured weekly limit when the remote sends none", func(t *testing.T) {
		// given
		server := httptest.NewServer(respond(`{"success": true, "data": {
			"new_total": 45, "is_overallocated": false,
			"allocations": [{"project_id": 20, "project_name": "Atlas", "billable_hrs": 15, "non_billable_hrs": 0, "leave_hrs": 0}]
		}}`))
		t.Cleanup(server.Close)

		// when
		result, err := NewRemoteChecker(server.URL, time.Second, 45).Check(context.Background(), proposal(phoenix, 30, 0, 0))

		// then
		require.NoError(t, err)
		hours(t, 45, result.Limit)
		assert.False(t, result.IsOverallocated)
	})

	t.Run("server error is transient", func(t *testing.T) {
		checker := serve(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := checker.Check(context.Background(), proposal(phoenix, 10, 0, 0))

		require.Error(t, err)
		assert.True(t, IsTransient(err))
	})

	t.Run("timeout is transient", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(server.Close)
		t.Cleanup(func() { close(release) })
		checker := NewRemoteChecker(server.URL, 50*time.Millisecond, limit40)

		_, err := checker.Check(context.Background(), proposal(phoenix, 10, 0, 0))

		require.Error(t, err)
		assert.True(t, IsTransient(err))
	})

	t.Run("unreachable host is transient", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewRemoteChecker(url, time.Second, limit40).Check(context.Background(), proposal(phoenix, 10, 0, 0))

		require.Error(t, err)
		assert.True(t, IsTransient(err))
	})

	t.Run("client error is rejected", func(t *testing.T) {
		checker := serve(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "week out of range", http.StatusBadRequest)
		})

		_, err := checker.Check(context.Background(), proposal(phoenix, 10, 0, 0))

		require.ErrorIs(t, err, ErrRemoteRejected)
		assert.False(t, IsTransient(err))
	})

	t.Run("malformed responses", func(t *testing.T) {
		bodies := map[string]string{
			"not json":          `<html>oops</html>`,
			"missing data":      `{"success": true}`,
			"unsuccessful":      `{"success": false, "data": {"new_total": 1, "is_overallocated": false}}`,
			"missing verdict":   `{"success": true, "data": {"new_total": 45}}`,
			"missing new total": `{"success": true, "data": {"is_overallocated": true}}`,
			"total disagrees with rows": `{"success": true, "data": {"new_total": 12, "is_overallocated": false, "limit": 40,
				"allocations": [{"project_id": 20, "billable_hrs": 15}]}}`,
			"verdict disagrees with total": `{"success": true, "data": {"new_total": 10, "is_overallocated": true, "limit": 40}}`,
		}
		for name, body := range bodies {
			t.Run(name, func(t *testing.T) {
				checker := serve(t, func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(body))
				})

				_, err := checker.Check(context.Background(), proposal(phoenix, 10, 0, 0))

				require.ErrorIs(t, err, ErrMalformedResponse)
				assert.False(t, IsTransient(err))
			})
		}
	})
}

func TestValidator_WithRemoteChecker(t *testing.T) {
	t.Run("falls back when the remote fails", func(t *testing.T) {
		checker := serve(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		validator := NewValidator(checker, limit40)

		result, err := validator.CheckOverallocation(context.Background(), proposal(phoenix, 30, 0, 0))

		require.NoError(t, err)
		assert.True(t, result.Degraded)
		assert.False(t, result.IsOverallocated)
	})

	t.Run("does not swallow malformed responses", func(t *testing.T) {
		checker := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": true, "data": {}}`))
		})
		validator := NewValidator(checker, limit40)

		_, err := validator.CheckOverallocation(context.Background(), proposal(phoenix, 30, 0, 0))

		require.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestLocalChecker_Check(t *testing.T) {
	// given
	repo := allocation.NewRepositoryStub()
	repo.SetProjectName(phoenix, "Phoenix")
	repo.SetProjectName(atlas, "Atlas")
	ctx := context.Background()
	for _, e := range []allocation.HourEntry{
		{UserId: userId, ProjectId: phoenix, Week: week, Year: year, Hours: allocation.NewHours(20, 0, 0)},
		{UserId: userId, ProjectId: atlas, Week: week, Year: year, Hours: allocation.NewHours(10, 5, 0)},
		{UserId: userId, ProjectId: atlas, Week: week + 1, Year: year, Hours: allocation.NewHours(40, 0, 0)},
	} {
		_, err := repo.Upsert(ctx, e)
		require.NoError(t, err)
	}
	checker := NewLocalChecker(repo, limit40)

	// when
	result, err := checker.Check(ctx, proposal(phoenix, 30, 0, 0))

	// then
	require.NoError(t, err)
	hours(t, 35, result.CurrentTotal)
	hours(t, 45, result.NewTotal)
	assert.True(t, result.IsOverallocated)
	require.Len(t, result.Allocations, 2)
	assert.Equal(t, "Phoenix", result.Allocations[0].ProjectName)
	assert.Equal(t, "Atlas", result.Allocations[1].ProjectName)
}
