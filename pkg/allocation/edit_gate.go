package allocation

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/internal/utils"
	"github.com/tppms/tppms/pkg/week_calendar"
)

var ErrWeekLocked = errors.New("week is locked for editing")

type Authorizer interface {
	Allowed(ctx context.Context, object, action string) bool
}

// IsEditable reports whether week can be changed when currentWeek is the current corporate week.
func IsEditable(week, currentWeek int, bypass bool) bool {
	return bypass || week >= currentWeek
}

// Gate applies IsEditable to the caller and the clock.
type Gate struct {
	clock      utils.Clock
	authorizer Authorizer
}

func NewGate(clock utils.Clock, authorizer Authorizer) *Gate {
	return &Gate{clock: clock, authorizer: authorizer}
}

func (g *Gate) Editable(ctx context.Context, week, year int) bool {
	bypass := g.authorizer.Allowed(ctx, authz.ObjAllocation, authz.ActBypassEditGate)
	current := week_calendar.CurrentPeriod(g.clock)
	switch {
	case year < current.Year:
		return bypass
	case year > current.Year:
		return true
	default:
		return IsEditable(week, current.Week, bypass)
	}
}

// Check returns ErrWeekLocked when the caller may not change week of year.
func (g *Gate) Check(ctx context.Context, week, year int) error {
	if !g.Editable(ctx, week, year) {
		log.Debugf("week %d of %d is locked", week, year)
		return ErrWeekLocked
	}
	return nil
}

func (g *Gate) CurrentPeriod() week_calendar.Period {
	return week_calendar.CurrentPeriod(g.clock)
}
