package overallocation

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/metrics"
)

// Validator asks the authoritative checker and degrades to Fallback when it is unreachable.
type Validator struct {
	checker Checker
	limit   int
}

func NewValidator(checker Checker, limit int) *Validator {
	return &Validator{checker: checker, limit: limit}
}

func (v *Validator) Limit() int {
	return v.limit
}

// CheckOverallocation validates proposal and checks it. Transient checker failures yield a
// degraded result, every other failure is returned.
func (v *Validator) CheckOverallocation(ctx context.Context, proposal Proposal) (CheckResult, error) {
	if err := proposal.Validate(); err != nil {
		return CheckResult{}, err
	}

	result, err := v.checker.Check(ctx, proposal)
	if err != nil {
		if !IsTransient(err) {
			metrics.OverallocationChecks.WithLabelValues("failed").Inc()
			log.Errorf("overallocation check failed for user %d week %d/%d: %v",
				proposal.UserId, proposal.Week, proposal.Year, err)
			return CheckResult{}, err
		}
		log.Warnf("overallocation check unavailable, judging the edit on its own: %v", err)
		metrics.OverallocationChecks.WithLabelValues("degraded").Inc()
		return Fallback(proposal, v.limit), nil
	}

	if result.IsOverallocated {
		metrics.OverallocationChecks.WithLabelValues("over_limit").Inc()
	} else {
		metrics.OverallocationChecks.WithLabelValues("within_limit").Inc()
	}
	return result, nil
}
