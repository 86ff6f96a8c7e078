package bench

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/week_calendar"
)

var ErrAccessDenied = errors.New("admin access required")

type Authorizer interface {
	Allowed(ctx context.Context, object, action string) bool
}

type Service interface {
	Summary(ctx context.Context, year, week int) (Summary, error)
	Users(ctx context.Context, category Category, year, week int) (Report, error)
	SaveRemark(ctx context.Context, remark Remark) (Remark, error)
}

type ServiceImpl struct {
	repo       Repository
	authorizer Authorizer
	limit      decimal.Decimal
}

func NewService(repo Repository, authorizer Authorizer, weeklyLimit int) *ServiceImpl {
	return &ServiceImpl{
		repo:       repo,
		authorizer: authorizer,
		limit:      decimal.NewFromInt(int64(weeklyLimit)),
	}
}

func (s *ServiceImpl) Summary(ctx context.Context, year, week int) (Summary, error) {
	users, actualYear, actualWeek, err := s.load(ctx, year, week)
	if err != nil {
		return Summary{}, err
	}
	summary := Summarize(users, s.limit)
	summary.ActualYear = actualYear
	summary.ActualWeek = actualWeek
	return summary, nil
}

func (s *ServiceImpl) Users(ctx context.Context, category Category, year, week int) (Report, error) {
	users, actualYear, actualWeek, err := s.load(ctx, year, week)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Category:   category,
		Users:      Filter(users, category, s.limit),
		ActualYear: actualYear,
		ActualWeek: actualWeek,
	}, nil
}

func (s *ServiceImpl) SaveRemark(ctx context.Context, remark Remark) (Remark, error) {
	if !s.authorizer.Allowed(ctx, authz.ObjRemark, authz.ActWrite) {
		return Remark{}, ErrAccessDenied
	}
	if err := week_calendar.ValidateWeek(remark.Week); err != nil {
		return Remark{}, err
	}
	remark.Remark = strings.TrimSpace(remark.Remark)
	if utf8.RuneCountInString(remark.Remark) > MaxRemarkLength {
		return Remark{}, rest.NewValidationError("remark", fmt.Sprintf("Remark cannot exceed %d characters", MaxRemarkLength))
	}
	if err := s.repo.UpsertRemark(ctx, remark); err != nil {
		return Remark{}, err
	}
	log.Infof("saved weekly remark for user %d week %d", remark.UserId, remark.Week)
	return remark, nil
}

// load reads the requested week or, when it holds no allocations, the most recent week that does.
func (s *ServiceImpl) load(ctx context.Context, year, week int) ([]UserWeek, int, int, error) {
	if !s.authorizer.Allowed(ctx, authz.ObjBench, authz.ActRead) {
		return nil, 0, 0, ErrAccessDenied
	}
	if err := (week_calendar.Period{Year: year, Month: 1, Week: week}).Validate(); err != nil {
		return nil, 0, 0, err
	}

	hasData, err := s.repo.HasData(ctx, year, week)
	if err != nil {
		return nil, 0, 0, err
	}
	if !hasData {
		latestYear, latestWeek, found, err := s.repo.LatestWeek(ctx)
		if err != nil {
			return nil, 0, 0, err
		}
		if !found {
			return []UserWeek{}, year, week, nil
		}
		log.Debugf("no allocations in week %d/%d, reporting week %d/%d", week, year, latestWeek, latestYear)
		year, week = latestYear, latestWeek
	}

	users, err := s.repo.GetUserWeeks(ctx, year, week)
	if err != nil {
		return nil, 0, 0, err
	}
	return users, year, week, nil
}
