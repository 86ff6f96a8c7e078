package app

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tppms/tppms/internal/authz"
)

// RegisterRoutes registers all API endpoints. Public routes are registered before the
// authenticated /api subrouter so they match first.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Auth
	r.HandleFunc("/api/auth/login", deps.SessionHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/google/login", deps.GoogleHandler.Login).Methods("GET")
	r.HandleFunc("/api/auth/google/callback", deps.GoogleHandler.Callback).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(requireUser)

	api.HandleFunc("/auth/logout", deps.SessionHandler.Logout).Methods("POST")
	api.HandleFunc("/auth/me", deps.UserHandler.CurrentUser).Methods("GET")

	// Calendar
	calendar := api.PathPrefix("/calendar").Subrouter()
	calendar.Use(requireCapability(deps.Enforcer, authz.ObjCalendar, authz.ActRead))
	calendar.HandleFunc("/weeks", deps.CalendarHandler.Weeks).Methods("GET")
	calendar.HandleFunc("/week", deps.CalendarHandler.Week).Methods("GET")
	calendar.HandleFunc("/current", deps.CalendarHandler.Current).Methods("GET")
	calendar.HandleFunc("/display-weeks", deps.CalendarHandler.DisplayWeeks).Methods("GET")

	// Projects
	api.HandleFunc("/projects", deps.ProjectHandler.ListAll).Methods("GET")
	api.HandleFunc("/projects/my-projects", deps.ProjectHandler.MyProjects).Methods("GET")
	api.HandleFunc("/projects/my-po-projects", deps.ProjectHandler.MyOwnedProjects).Methods("GET")
	api.HandleFunc("/projects/my-po-dashboard", deps.DashboardHandler.OwnerDashboard).Methods("GET")
	api.HandleFunc("/projects/{projectId}/users", deps.ProjectHandler.Members).Methods("GET")
	api.HandleFunc("/projects/{projectId}/weekly-allocations", deps.AllocationHandler.WeeklyAllocations).Methods("GET")
	api.HandleFunc("/projects/{projectId}/insights", deps.AllocationHandler.Insights).Methods("GET")
	api.HandleFunc("/projects/{projectId}/allocations", deps.OverallocationHandler.SaveAllocation).Methods("POST")
	api.HandleFunc("/projects/{projectId}/copy-week", deps.AllocationHandler.CopyWeek).Methods("POST")
	api.HandleFunc("/projects/{projectId}/editable-allocations", deps.AllocationHandler.EditableAllocations).Methods("GET")

	// Allocation
	api.HandleFunc("/allocation", deps.AllocationHandler.MyAllocations).Methods("GET")
	api.HandleFunc("/allocation/check-overallocation", deps.OverallocationHandler.CheckOverallocation).Methods("GET")
	api.HandleFunc("/allocation/user-week-breakdown", deps.OverallocationHandler.UserWeekBreakdown).Methods("GET")
	api.HandleFunc("/allocations/{id}", deps.OverallocationHandler.UpdateAllocation).Methods("PUT")

	// Admin dashboard
	api.HandleFunc("/admin/dashboard-summary", deps.DashboardHandler.AdminSummary).Methods("GET")
	api.HandleFunc("/admin/user-counts", deps.DashboardHandler.UserCounts).Methods("GET")
	api.HandleFunc("/admin/users/{status:active|new|inactive}", deps.DashboardHandler.Users).Methods("GET")
	api.HandleFunc("/admin/projects/{status:active|on-hold|completed}", deps.DashboardHandler.Projects).Methods("GET")

	// Bench
	api.HandleFunc("/bench/summary", deps.BenchHandler.Summary).Methods("GET")
	api.HandleFunc("/bench/{category}", deps.BenchHandler.Users).Methods("GET")
	api.HandleFunc("/bench/{category}/export", deps.BenchHandler.Export).Methods("GET")
	api.HandleFunc("/weekly-remark/{userId}/{week}", deps.BenchHandler.SaveRemark).Methods("PUT")
}
