package overallocation

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/event_bus"
	"github.com/tppms/tppms/pkg/allocation"
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateWithinLimit
	StateAwaitingUserDecision
	StateReverted
	StateKeptAnyway
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateWithinLimit:
		return "within_limit"
	case StateAwaitingUserDecision:
		return "awaiting_user_decision"
	case StateReverted:
		return "reverted"
	case StateKeptAnyway:
		return "kept_anyway"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type OverallocationChecker interface {
	CheckOverallocation(ctx context.Context, proposal Proposal) (CheckResult, error)
}

type Persister interface {
	Persist(ctx context.Context, entry allocation.HourEntry) (allocation.HourEntry, error)
}

type BreakdownReader interface {
	UserWeekBreakdown(ctx context.Context, userId, week, year int) (Breakdown, error)
}

// EditSession tracks one cell edit from submission until it is saved, reverted or kept over the limit.
type EditSession struct {
	mu         sync.Mutex
	state      State
	original   allocation.HourEntry
	current    allocation.HourEntry
	result     CheckResult
	checker    OverallocationChecker
	persister  Persister
	breakdowns BreakdownReader
	eventBus   *event_bus.EventBus
}

// NewEditSession starts an idle session for original, the stored value of the cell.
func NewEditSession(
	original allocation.HourEntry,
	checker OverallocationChecker,
	persister Persister,
	breakdowns BreakdownReader,
	eventBus *event_bus.EventBus,
) *EditSession {
	return &EditSession{
		state:      StateIdle,
		original:   original,
		current:    original,
		checker:    checker,
		persister:  persister,
		breakdowns: breakdowns,
		eventBus:   eventBus,
	}
}

func (s *EditSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the cell value as the editor sees it.
func (s *EditSession) Current() allocation.HourEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *EditSession) Result() CheckResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Submit validates hours and saves them when the user stays within the limit. Over the limit the
// session waits for Revert, KeepAnyway or ViewBreakdown. A failed check leaves the edited value in place.
func (s *EditSession) Submit(ctx context.Context, hours allocation.Hours) (CheckResult, error) {
	s.mu.Lock()
	if s.state == StateValidating || s.state == StateAwaitingUserDecision {
		state := s.state
		s.mu.Unlock()
		return CheckResult{}, fmt.Errorf("%w: submit while %s", ErrInvalidTransition, state)
	}
	previous := s.state
	s.current.Hours = hours
	proposal := ProposalOf(s.current)
	s.state = StateValidating
	s.mu.Unlock()

	result, err := s.checker.CheckOverallocation(ctx, proposal)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = previous
		return CheckResult{}, err
	}
	s.result = result
	if result.IsOverallocated {
		s.state = StateAwaitingUserDecision
		return result, nil
	}

	saved, err := s.persister.Persist(ctx, s.current)
	if err != nil {
		s.state = previous
		return result, err
	}
	s.original = saved
	s.current = saved
	s.state = StateWithinLimit
	return result, nil
}

// Revert restores the value the cell had before the edit. Nothing is persisted.
func (s *EditSession) Revert() (allocation.HourEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingUserDecision {
		return allocation.HourEntry{}, fmt.Errorf("%w: revert while %s", ErrInvalidTransition, s.state)
	}
	s.current = s.original
	s.state = StateReverted
	return s.current, nil
}

// KeepAnyway persists the edit although it exceeds the limit.
func (s *EditSession) KeepAnyway(ctx context.Context) (allocation.HourEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingUserDecision {
		return allocation.HourEntry{}, fmt.Errorf("%w: keep while %s", ErrInvalidTransition, s.state)
	}
	saved, err := s.persister.Persist(ctx, s.current)
	if err != nil {
		return allocation.HourEntry{}, err
	}
	s.original = saved
	s.current = saved
	s.state = StateKeptAnyway
	log.Infof("user %d kept %s hours in week %d/%d, %s over the limit",
		saved.UserId, s.result.NewTotal, saved.Week, saved.Year, s.result.OverBy)

	if s.eventBus != nil {
		err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.AllocationKeptOverLimitType, event_bus.AllocationKeptOverLimit{
			UserId:    saved.UserId,
			ProjectId: saved.ProjectId,
			Week:      saved.Week,
			Year:      saved.Year,
			NewTotal:  s.result.NewTotal,
			OverBy:    s.result.OverBy,
		}))
		if err != nil {
			log.Errorf("failed to publish %s: %v", event_bus.AllocationKeptOverLimitType, err)
		}
	}
	return saved, nil
}

// ViewBreakdown fetches the user's week across projects. The session keeps waiting for a decision.
func (s *EditSession) ViewBreakdown(ctx context.Context) (Breakdown, error) {
	s.mu.Lock()
	if s.state != StateAwaitingUserDecision {
		state := s.state
		s.mu.Unlock()
		return Breakdown{}, fmt.Errorf("%w: view breakdown while %s", ErrInvalidTransition, state)
	}
	entry := s.current
	s.mu.Unlock()

	return s.breakdowns.UserWeekBreakdown(ctx, entry.UserId, entry.Week, entry.Year)
}
