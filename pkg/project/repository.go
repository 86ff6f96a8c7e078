package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrProjectNotFound = errors.New("project not found")

type Repository interface {
	ListActiveProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id int) (Project, error)
	ListUserProjects(ctx context.Context, userId int) ([]Project, error)
	ListOwnedProjects(ctx context.Context, userId int) ([]Project, error)
	IsMember(ctx context.Context, userId int, projectId int) (bool, error)
	GetProjectMembers(ctx context.Context, projectId int) ([]Member, error)
	// CountByStatus returns the number of projects per status.
	CountByStatus(ctx context.Context) (map[int]int, error)
	ListSummaries(ctx context.Context, status int) ([]Summary, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) ListActiveProjects(ctx context.Context) ([]Project, error) {
	query := `SELECT id, name, description, status, '' FROM projects WHERE status = $1 ORDER BY name`
	return r.queryProjects(ctx, query, StatusActive)
}

func (r *RepositoryImpl) GetProject(ctx context.Context, id int) (Project, error) {
	var p Project
	err := r.db.QueryRow(ctx, `SELECT id, name, description, status FROM projects WHERE id = $1`, id).
		Scan(&p.Id, &p.Name, &p.Description, &p.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrProjectNotFound
	}
	if err != nil {
		err = fmt.Errorf("could not get project %d: %w", id, err)
		log.Error(err)
		return Project{}, err
	}
	return p, nil
}

func (r *RepositoryImpl) ListUserProjects(ctx context.Context, userId int) ([]Project, error) {
	query := `SELECT p.id, p.name, p.description, p.status, string_agg(r.name, ', ' ORDER BY r.name)
			  FROM projects p
			  JOIN members m ON p.id = m.project_id
			  JOIN member_roles mr ON m.id = mr.member_id
			  JOIN roles r ON mr.role_id = r.id
			  WHERE m.user_id = $1 AND p.status = $2
			  GROUP BY p.id, p.name, p.description, p.status
			  ORDER BY p.name`
	return r.queryProjects(ctx, query, userId, StatusActive)
}

func (r *RepositoryImpl) ListOwnedProjects(ctx context.Context, userId int) ([]Project, error) {
	query := `SELECT p.id, p.name, p.description, p.status, string_agg(r.name, ', ' ORDER BY r.name)
			  FROM projects p
			  JOIN members m ON p.id = m.project_id
			  JOIN member_roles mr ON m.id = mr.member_id
			  JOIN roles r ON mr.role_id = r.id
			  WHERE m.user_id = $1
			  AND p.status = $2
			  AND (r.name = 'Project Owner' OR r.name = 'Project Creator' OR r.name LIKE '%Manager%' OR r.name LIKE '%Admin%')
			  GROUP BY p.id, p.name, p.description, p.status
			  ORDER BY p.name`
	return r.queryProjects(ctx, query, userId, StatusActive)
}

func (r *RepositoryImpl) queryProjects(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("could not query projects: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.Id, &p.Name, &p.Description, &p.Status, &p.RoleName); err != nil {
			err = fmt.Errorf("error scanning project: %w", err)
			log.Error(err)
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *RepositoryImpl) IsMember(ctx context.Context, userId int, projectId int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM members WHERE user_id = $1 AND project_id = $2)`,
		userId, projectId,
	).Scan(&exists)
	if err != nil {
		log.Errorf("could not check membership of user %d in project %d: %v", userId, projectId, err)
		return false, err
	}
	return exists, nil
}

// GetProjectMembers returns active members of a project with all their project roles.
func (r *RepositoryImpl) GetProjectMembers(ctx context.Context, projectId int) ([]Member, error) {
	query := `SELECT u.id, u.login, u.firstname, u.lastname,
				array_remove(array_agg(r.name ORDER BY r.name), NULL)
			  FROM users u
			  JOIN members m ON u.id = m.user_id
			  LEFT JOIN member_roles mr ON m.id = mr.member_id
			  LEFT JOIN roles r ON mr.role_id = r.id
			  WHERE m.project_id = $1 AND u.status = 1
			  GROUP BY u.id, u.login, u.firstname, u.lastname
			  ORDER BY u.firstname, u.lastname`
	rows, err := r.db.Query(ctx, query, projectId)
	if err != nil {
		err = fmt.Errorf("could not query project members: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	members := make([]Member, 0)
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserId, &m.Login, &m.Firstname, &m.Lastname, &m.Roles); err != nil {
			err = fmt.Errorf("error scanning member: %w", err)
			log.Error(err)
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *RepositoryImpl) CountByStatus(ctx context.Context) (map[int]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM projects GROUP BY status`)
	if err != nil {
		err = fmt.Errorf("could not count projects: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	counts := map[int]int{}
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			err = fmt.Errorf("error scanning project count: %w", err)
			log.Error(err)
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *RepositoryImpl) ListSummaries(ctx context.Context, status int) ([]Summary, error) {
	query := `SELECT p.id, p.name, p.description, p.status,
				(SELECT COUNT(*) FROM members m WHERE m.project_id = p.id),
				(SELECT COALESCE(SUM(ua.billable_hrs + ua.non_billable_hrs + ua.leave_hrs), 0)
				 FROM user_allocation ua WHERE ua.project_id = p.id)::text
			  FROM projects p
			  WHERE p.status = $1
			  ORDER BY p.name`
	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		err = fmt.Errorf("could not query project summaries: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var (
			s     Summary
			total string
		)
		if err := rows.Scan(&s.Id, &s.Name, &s.Description, &s.Status, &s.MemberCount, &total); err != nil {
			err = fmt.Errorf("error scanning project summary: %w", err)
			log.Error(err)
			return nil, err
		}
		if s.TotalHours, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invalid total hours %q of project %d: %w", total, s.Id, err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
