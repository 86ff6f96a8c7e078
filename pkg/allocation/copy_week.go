package allocation

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/internal/event_bus"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/user"
	"github.com/tppms/tppms/pkg/week_calendar"
)

var ErrConfirmationRequired = errors.New("copying a week overwrites the target week and must be confirmed")

type CopyResult struct {
	SuccessCount int
	ErrorCount   int
}

// CopyWeek duplicates every team member's non-zero source week entry into the target week.
// Each member is written independently: a failed write is counted and the batch continues.
func (s *ServiceImpl) CopyWeek(ctx context.Context, projectId, sourceWeek, targetWeek, year int, confirmed bool) (CopyResult, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return CopyResult{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := validateCopy(sourceWeek, targetWeek, year); err != nil {
		return CopyResult{}, err
	}
	if !confirmed {
		return CopyResult{}, ErrConfirmationRequired
	}
	if !s.authorizer.Allowed(ctx, authz.ObjAllocation, authz.ActCopyWeek) {
		return CopyResult{}, ErrEditNotAllowed
	}
	if err := s.gate.Check(ctx, targetWeek, year); err != nil {
		return CopyResult{}, err
	}

	_, members, err := s.projects.Members(ctx, projectId)
	if err != nil {
		return CopyResult{}, err
	}
	entries, err := s.repo.GetProjectEntries(ctx, projectId, year, []int{sourceWeek})
	if err != nil {
		return CopyResult{}, err
	}
	team := MergeAllocationsIntoUsers(FilterTeamMembers(toTeamMembers(members)), entries)

	targetRange, err := week_calendar.WeekDateRange(targetWeek, year)
	if err != nil {
		return CopyResult{}, err
	}

	var result CopyResult
	for _, member := range team {
		hours := member.Weeks[sourceWeek]
		if hours.IsZero() {
			continue
		}
		_, err := s.repo.Upsert(ctx, HourEntry{
			UserId:    member.UserId,
			ProjectId: projectId,
			Week:      targetWeek,
			Year:      year,
			Hours:     hours,
			WeekStart: targetRange.StartDate,
			UpdatedBy: currentUser.Login,
		})
		if err != nil {
			log.Errorf("failed to copy week %d to %d for user %d in project %d: %v",
				sourceWeek, targetWeek, member.UserId, projectId, err)
			result.ErrorCount++
			continue
		}
		result.SuccessCount++
	}
	log.Infof("copied week %d to %d in project %d: %d succeeded, %d failed",
		sourceWeek, targetWeek, projectId, result.SuccessCount, result.ErrorCount)

	s.publish(ctx, event_bus.AllocationWeekCopiedType, event_bus.AllocationWeekCopied{
		ProjectId:    projectId,
		SourceWeek:   sourceWeek,
		TargetWeek:   targetWeek,
		Year:         year,
		SuccessCount: result.SuccessCount,
		ErrorCount:   result.ErrorCount,
	})
	return result, nil
}

func validateCopy(sourceWeek, targetWeek, year int) error {
	if err := week_calendar.ValidateYear(year); err != nil {
		return err
	}
	if err := week_calendar.ValidateWeek(sourceWeek); err != nil {
		return err
	}
	if err := week_calendar.ValidateWeek(targetWeek); err != nil {
		return err
	}
	if sourceWeek == targetWeek {
		return rest.NewValidationError("target_week", "Target week must differ from the source week")
	}
	return nil
}
