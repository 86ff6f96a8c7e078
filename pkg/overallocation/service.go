package overallocation

import (
	"context"

	"github.com/tppms/tppms/internal/event_bus"
	"github.com/tppms/tppms/pkg/allocation"
	"github.com/tppms/tppms/pkg/user"
)

type AllocationService interface {
	CheckEditable(ctx context.Context, entry allocation.HourEntry) error
	Persist(ctx context.Context, entry allocation.HourEntry) (allocation.HourEntry, error)
	UserWeekAllocations(ctx context.Context, userId, week, year int) ([]allocation.ProjectHours, error)
	GetEntry(ctx context.Context, id int) (allocation.HourEntry, error)
}

type UserReader interface {
	GetUser(ctx context.Context, id int) (user.User, error)
}

// SaveOutcome reports where the edit session of a save ended.
type SaveOutcome struct {
	State State
	Entry allocation.HourEntry
	Check CheckResult
}

type Service interface {
	CheckOverallocation(ctx context.Context, proposal Proposal) (CheckResult, error)
	UserWeekBreakdown(ctx context.Context, userId, week, year int) (Breakdown, error)
	// Save persists entry when it keeps the user within the limit, or when keepOverLimit is set.
	Save(ctx context.Context, entry allocation.HourEntry, keepOverLimit bool) (SaveOutcome, error)
	// Update replaces the hours of the stored entry id and saves it the way Save does.
	Update(ctx context.Context, id int, hours allocation.Hours, keepOverLimit bool) (SaveOutcome, error)
}

type ServiceImpl struct {
	validator   *Validator
	allocations AllocationService
	users       UserReader
	eventBus    *event_bus.EventBus
}

func NewService(validator *Validator, allocations AllocationService, users UserReader, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{
		validator:   validator,
		allocations: allocations,
		users:       users,
		eventBus:    eventBus,
	}
}

func (s *ServiceImpl) CheckOverallocation(ctx context.Context, proposal Proposal) (CheckResult, error) {
	return s.validator.CheckOverallocation(ctx, proposal)
}

func (s *ServiceImpl) UserWeekBreakdown(ctx context.Context, userId, week, year int) (Breakdown, error) {
	u, err := s.users.GetUser(ctx, userId)
	if err != nil {
		return Breakdown{}, err
	}
	allocations, err := s.allocations.UserWeekAllocations(ctx, userId, week, year)
	if err != nil {
		return Breakdown{}, err
	}
	return NewBreakdown(userId, u.FullName(), week, year, allocations, s.validator.Limit()), nil
}

func (s *ServiceImpl) Save(ctx context.Context, entry allocation.HourEntry, keepOverLimit bool) (SaveOutcome, error) {
	if err := s.allocations.CheckEditable(ctx, entry); err != nil {
		return SaveOutcome{}, err
	}
	original, err := s.storedEntry(ctx, entry)
	if err != nil {
		return SaveOutcome{}, err
	}

	session := NewEditSession(original, s.validator, s.allocations, s, s.eventBus)
	result, err := session.Submit(ctx, entry.Hours)
	if err != nil {
		return SaveOutcome{}, err
	}
	if session.State() == StateAwaitingUserDecision && keepOverLimit {
		if _, err := session.KeepAnyway(ctx); err != nil {
			return SaveOutcome{}, err
		}
	}
	return SaveOutcome{
		State: session.State(),
		Entry: session.Current(),
		Check: result,
	}, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id int, hours allocation.Hours, keepOverLimit bool) (SaveOutcome, error) {
	if err := hours.Validate(); err != nil {
		return SaveOutcome{}, err
	}
	entry, err := s.allocations.GetEntry(ctx, id)
	if err != nil {
		return SaveOutcome{}, err
	}
	entry.Hours = hours
	entry.ProjectName = ""
	return s.Save(ctx, entry, keepOverLimit)
}

// storedEntry returns entry carrying the hours currently stored for its key, zero when none are.
func (s *ServiceImpl) storedEntry(ctx context.Context, entry allocation.HourEntry) (allocation.HourEntry, error) {
	stored, err := s.allocations.UserWeekAllocations(ctx, entry.UserId, entry.Week, entry.Year)
	if err != nil {
		return allocation.HourEntry{}, err
	}
	original := entry
	original.Hours = allocation.Hours{}
	for _, row := range stored {
		if row.ProjectId == entry.ProjectId {
			original.Hours = row.Hours
			break
		}
	}
	return original, nil
}
