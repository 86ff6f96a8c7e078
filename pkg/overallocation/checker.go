package overallocation

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/pkg/allocation"
)

// Checker answers an overallocation check authoritatively.
type Checker interface {
	Check(ctx context.Context, proposal Proposal) (CheckResult, error)
}

type UserWeekReader interface {
	GetUserWeekAllocations(ctx context.Context, userId, week, year int) ([]allocation.ProjectHours, error)
}

// LocalChecker runs Check against the user's stored week.
type LocalChecker struct {
	reader UserWeekReader
	limit  int
}

func NewLocalChecker(reader UserWeekReader, limit int) *LocalChecker {
	return &LocalChecker{reader: reader, limit: limit}
}

func (c *LocalChecker) Check(ctx context.Context, proposal Proposal) (CheckResult, error) {
	entries, err := c.reader.GetUserWeekAllocations(ctx, proposal.UserId, proposal.Week, proposal.Year)
	if err != nil {
		return CheckResult{}, err
	}
	result := Check(entries, proposal, c.limit)
	log.Debugf("overallocation check for user %d week %d/%d: current %s, new %s, over by %s",
		proposal.UserId, proposal.Week, proposal.Year, result.CurrentTotal, result.NewTotal, result.OverBy)
	return result, nil
}
