package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrEntryNotFound = errors.New("allocation not found")

type Repository interface {
	// Upsert creates or replaces the entry for its (user, project, week, year) key. Last write wins.
	Upsert(ctx context.Context, entry HourEntry) (HourEntry, error)
	// GetUserWeekAllocations returns a user's entries across all projects, highest total first.
	GetUserWeekAllocations(ctx context.Context, userId, week, year int) ([]ProjectHours, error)
	GetProjectEntries(ctx context.Context, projectId, year int, weeks []int) ([]HourEntry, error)
	GetUserEntries(ctx context.Context, userId, year int, weeks []int) ([]HourEntry, error)
	// GetEntry returns ErrEntryNotFound when no entry has id.
	GetEntry(ctx context.Context, id int) (HourEntry, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Upsert(ctx context.Context, entry HourEntry) (HourEntry, error) {
	query := `INSERT INTO user_allocation (
					year,
					week,
					week_start,
					user_id,
					project_id,
					billable_hrs,
					non_billable_hrs,
					leave_hrs,
					updated_by
				) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9)
				ON CONFLICT ON CONSTRAINT user_allocation_key DO UPDATE SET
					billable_hrs = EXCLUDED.billable_hrs,
					non_billable_hrs = EXCLUDED.non_billable_hrs,
					leave_hrs = EXCLUDED.leave_hrs,
					updated_by = EXCLUDED.updated_by,
					updated_at = now()
				RETURNING id, updated_at`

	err := r.db.QueryRow(ctx, query,
		entry.Year,
		entry.Week,
		entry.WeekStart,
		entry.UserId,
		entry.ProjectId,
		entry.Billable.String(),
		entry.NonBillable.String(),
		entry.Leave.String(),
		entry.UpdatedBy,
	).Scan(&entry.Id, &entry.UpdatedAt)
	if err != nil {
		err = fmt.Errorf("could not upsert allocation for user %d project %d week %d/%d: %w",
			entry.UserId, entry.ProjectId, entry.Week, entry.Year, err)
		log.Error(err)
		return HourEntry{}, err
	}
	return entry, nil
}

func (r *RepositoryImpl) GetUserWeekAllocations(ctx context.Context, userId, week, year int) ([]ProjectHours, error) {
	query := `SELECT
				ua.project_id,
				p.name,
				COALESCE(string_agg(DISTINCT r.name, ', '), ''),
				ua.billable_hrs::text,
				ua.non_billable_hrs::text,
				ua.leave_hrs::text
			  FROM user_allocation ua
			  JOIN projects p ON ua.project_id = p.id
			  LEFT JOIN members m ON ua.user_id = m.user_id AND ua.project_id = m.project_id
			  LEFT JOIN member_roles mr ON m.id = mr.member_id
			  LEFT JOIN roles r ON mr.role_id = r.id
			  WHERE ua.user_id = $1 AND ua.week = $2 AND ua.year = $3
			  GROUP BY ua.project_id, p.name, ua.billable_hrs, ua.non_billable_hrs, ua.leave_hrs
			  ORDER BY (ua.billable_hrs + ua.non_billable_hrs + ua.leave_hrs) DESC, p.name`

	rows, err := r.db.Query(ctx, query, userId, week, year)
	if err != nil {
		err = fmt.Errorf("could not query user week allocations: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	allocations := make([]ProjectHours, 0)
	for rows.Next() {
		var (
			ph                           ProjectHours
			billable, nonBillable, leave string
		)
		if err := rows.Scan(&ph.ProjectId, &ph.ProjectName, &ph.RoleName, &billable, &nonBillable, &leave); err != nil {
			err = fmt.Errorf("error scanning user week allocation: %w", err)
			log.Error(err)
			return nil, err
		}
		if ph.Hours, err = parseHours(billable, nonBillable, leave); err != nil {
			return nil, err
		}
		allocations = append(allocations, ph)
	}
	return allocations, rows.Err()
}

func (r *RepositoryImpl) GetProjectEntries(ctx context.Context, projectId, year int, weeks []int) ([]HourEntry, error) {
	query := entrySelect + ` WHERE ua.project_id = $1 AND ua.year = $2`
	return r.queryEntries(ctx, query, weeks, projectId, year)
}

func (r *RepositoryImpl) GetUserEntries(ctx context.Context, userId, year int, weeks []int) ([]HourEntry, error) {
	query := entrySelect + ` WHERE ua.user_id = $1 AND ua.year = $2`
	return r.queryEntries(ctx, query, weeks, userId, year)
}

func (r *RepositoryImpl) GetEntry(ctx context.Context, id int) (HourEntry, error) {
	rows, err := r.db.Query(ctx, entrySelect+` WHERE ua.id = $1`, id)
	if err != nil {
		err = fmt.Errorf("could not query allocation %d: %w", id, err)
		log.Error(err)
		return HourEntry{}, err
	}
	entry, err := pgx.CollectExactlyOneRow(rows, scanEntry)
	if errors.Is(err, pgx.ErrNoRows) {
		return HourEntry{}, ErrEntryNotFound
	}
	if err != nil {
		err = fmt.Errorf("error scanning allocation %d: %w", id, err)
		log.Error(err)
		return HourEntry{}, err
	}
	return entry, nil
}

const entrySelect = `SELECT
				ua.id,
				ua.user_id,
				ua.project_id,
				p.name,
				ua.week,
				ua.year,
				ua.week_start,
				ua.billable_hrs::text,
				ua.non_billable_hrs::text,
				ua.leave_hrs::text,
				ua.updated_by,
				ua.updated_at
			  FROM user_allocation ua
			  JOIN projects p ON ua.project_id = p.id`

// queryEntries narrows query to weeks when any are given and orders the result by week and project.
func (r *RepositoryImpl) queryEntries(ctx context.Context, query string, weeks []int, args ...any) ([]HourEntry, error) {
	if len(weeks) > 0 {
		args = append(args, weeks)
		query += fmt.Sprintf(" AND ua.week = ANY($%d)", len(args))
	}
	query += " ORDER BY ua.week, p.name, ua.user_id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("could not query allocations: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		err = fmt.Errorf("error scanning allocations: %w", err)
		log.Error(err)
		return nil, err
	}
	return entries, nil
}

func scanEntry(row pgx.CollectableRow) (HourEntry, error) {
	var (
		entry                        HourEntry
		billable, nonBillable, leave string
		weekStart, updatedAt         time.Time
	)
	err := row.Scan(
		&entry.Id,
		&entry.UserId,
		&entry.ProjectId,
		&entry.ProjectName,
		&entry.Week,
		&entry.Year,
		&weekStart,
		&billable,
		&nonBillable,
		&leave,
		&entry.UpdatedBy,
		&updatedAt,
	)
	if err != nil {
		return HourEntry{}, err
	}
	entry.WeekStart = weekStart
	entry.UpdatedAt = updatedAt
	entry.Hours, err = parseHours(billable, nonBillable, leave)
	return entry, err
}

func parseHours(billable, nonBillable, leave string) (Hours, error) {
	var (
		h   Hours
		err error
	)
	if h.Billable, err = decimal.NewFromString(billable); err != nil {
		return Hours{}, fmt.Errorf("invalid billable hours %q: %w", billable, err)
	}
	if h.NonBillable, err = decimal.NewFromString(nonBillable); err != nil {
		return Hours{}, fmt.Errorf("invalid non-billable hours %q: %w", nonBillable, err)
	}
	if h.Leave, err = decimal.NewFromString(leave); err != nil {
		return Hours{}, fmt.Errorf("invalid leave hours %q: %w", leave, err)
	}
	return h, nil
}
