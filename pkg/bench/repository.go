package bench

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/pkg/allocation"
)

type Repository interface {
	HasData(ctx context.Context, year, week int) (bool, error)
	// LatestWeek returns the most recent week holding any allocation.
	LatestWeek(ctx context.Context) (year int, week int, found bool, err error)
	GetUserWeeks(ctx context.Context, year, week int) ([]UserWeek, error)
	UpsertRemark(ctx context.Context, remark Remark) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) HasData(ctx context.Context, year, week int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_allocation WHERE year = $1 AND week = $2)`, year, week,
	).Scan(&exists)
	return exists, err
}

func (r *RepositoryImpl) LatestWeek(ctx context.Context) (int, int, bool, error) {
	var year, week int
	err := r.db.QueryRow(ctx,
		`SELECT year, week FROM user_allocation ORDER BY year DESC, week DESC LIMIT 1`,
	).Scan(&year, &week)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, false, nil
	} else if err != nil {
		return 0, 0, false, err
	}
	return year, week, true, nil
}

func (r *RepositoryImpl) GetUserWeeks(ctx context.Context, year, week int) ([]UserWeek, error) {
	query := `
		SELECT u.id,
		       trim(u.firstname || ' ' || u.lastname),
		       coalesce(u.skill, ''),
		       string_agg(DISTINCT p.name, ', ' ORDER BY p.name),
		       max(ua.updated_by),
		       min(ua.week_start),
		       coalesce(max(wr.remark), ''),
		       sum(ua.billable_hrs)::text,
		       sum(ua.non_billable_hrs)::text,
		       sum(ua.leave_hrs)::text
		FROM user_allocation ua
		JOIN users u ON u.id = ua.user_id
		JOIN projects p ON p.id = ua.project_id
		LEFT JOIN weekly_remark wr ON wr.user_id = ua.user_id AND wr.week = ua.week
		WHERE ua.year = $1 AND ua.week = $2
		GROUP BY u.id, u.firstname, u.lastname, u.skill
		ORDER BY u.firstname, u.lastname`

	rows, err := r.db.Query(ctx, query, year, week)
	if err != nil {
		log.Errorf("failed to query bench week %d/%d: %v", week, year, err)
		return nil, err
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserWeek, error) {
		var (
			u                            UserWeek
			projects                     string
			billable, nonBillable, leave string
		)
		err := row.Scan(&u.UserId, &u.Name, &u.Skill, &projects, &u.UpdatedBy, &u.WeekStart, &u.Remark,
			&billable, &nonBillable, &leave)
		if err != nil {
			return UserWeek{}, err
		}
		u.Projects = strings.Split(projects, ", ")
		hours := allocation.Hours{}
		if hours.Billable, err = decimal.NewFromString(billable); err != nil {
			return UserWeek{}, err
		}
		if hours.NonBillable, err = decimal.NewFromString(nonBillable); err != nil {
			return UserWeek{}, err
		}
		if hours.Leave, err = decimal.NewFromString(leave); err != nil {
			return UserWeek{}, err
		}
		u.Totals = allocation.Totals{}.Add(hours)
		return u, nil
	})
	if err != nil {
		log.Errorf("failed to read bench week %d/%d: %v", week, year, err)
		return nil, err
	}
	return users, nil
}

func (r *RepositoryImpl) UpsertRemark(ctx context.Context, remark Remark) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO weekly_remark (user_id, week, remark) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, week) DO UPDATE SET remark = EXCLUDED.remark`,
		remark.UserId, remark.Week, remark.Remark,
	)
	if err != nil {
		log.Errorf("failed to save remark for user %d week %d: %v", remark.UserId, remark.Week, err)
	}
	return err
}
