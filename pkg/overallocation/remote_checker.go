package overallocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/pkg/allocation"
)

const checkPath = "/api/allocation/check-overallocation"

// totalTolerance absorbs float rounding between the remote total and the summed rows.
var totalTolerance = decimal.RequireFromString("0.01")

// RemoteChecker asks a remote check-overallocation endpoint. The remote supplies the user's stored
// week; the proposal is substituted locally so rows and totals always describe the edited week.
type RemoteChecker struct {
	baseURL string
	client  *http.Client
	limit   int
}

// NewRemoteChecker uses weeklyLimit when the remote response carries no limit of its own.
func NewRemoteChecker(baseURL string, timeout time.Duration, weeklyLimit int) *RemoteChecker {
	return &RemoteChecker{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limit:   weeklyLimit,
	}
}

type remoteRow struct {
	ProjectId      int     `json:"project_id"`
	ProjectName    string  `json:"project_name"`
	BillableHrs    float64 `json:"billable_hrs"`
	NonBillableHrs float64 `json:"non_billable_hrs"`
	LeaveHrs       float64 `json:"leave_hrs"`
}

type remoteResult struct {
	CurrentTotal        float64     `json:"current_total"`
	NewTotal            *float64    `json:"new_total"`
	IsOverallocated     *bool       `json:"is_overallocated"`
	OverBy              float64     `json:"over_by"`
	Limit               *float64    `json:"limit"`
	CurrentProjectHours float64     `json:"current_project_hours"`
	NewProjectHours     float64     `json:"new_project_hours"`
	Allocations         []remoteRow `json:"allocations"`
}

type remoteEnvelope struct {
	Success bool          `json:"success"`
	Data    *remoteResult `json:"data"`
}

func (c *RemoteChecker) Check(ctx context.Context, proposal Proposal) (CheckResult, error) {
	query := url.Values{}
	query.Set("user_id", strconv.Itoa(proposal.UserId))
	query.Set("week", strconv.Itoa(proposal.Week))
	query.Set("year", strconv.Itoa(proposal.Year))
	query.Set("current_project_id", strconv.Itoa(proposal.ProjectId))
	query.Set("new_billable", proposal.Billable.String())
	query.Set("new_non_billable", proposal.NonBillable.String())
	query.Set("new_leave", proposal.Leave.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+checkPath+"?"+query.Encode(), nil)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return CheckResult{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isNetworkError(err) {
			return CheckResult{}, &TransientError{Err: err}
		}
		log.Errorf("Failed to execute request: %v", err)
		return CheckResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return CheckResult{}, &TransientError{Err: fmt.Errorf("remote check returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return CheckResult{}, fmt.Errorf("%w: status %d: %s", ErrRemoteRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope remoteEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if isNetworkError(err) {
			return CheckResult{}, &TransientError{Err: err}
		}
		return CheckResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return toCheckResult(envelope, proposal, c.limit)
}

func toCheckResult(envelope remoteEnvelope, proposal Proposal, weeklyLimit int) (CheckResult, error) {
	data := envelope.Data
	if !envelope.Success || data == nil {
		return CheckResult{}, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	if data.NewTotal == nil || data.IsOverallocated == nil {
		return CheckResult{}, fmt.Errorf("%w: missing new_total or is_overallocated", ErrMalformedResponse)
	}

	limit := decimal.NewFromInt(int64(weeklyLimit))
	if data.Limit != nil {
		limit = decimal.NewFromFloat(*data.Limit)
	}
	stored := make([]allocation.ProjectHours, 0, len(data.Allocations))
	for _, row := range data.Allocations {
		stored = append(stored, allocation.ProjectHours{
			ProjectId:   row.ProjectId,
			ProjectName: row.ProjectName,
			Hours:       allocation.NewHours(row.BillableHrs, row.NonBillableHrs, row.LeaveHrs),
		})
	}
	result := checkAgainst(stored, proposal, limit)

	remoteTotal := decimal.NewFromFloat(*data.NewTotal)
	if result.NewTotal.Sub(remoteTotal).Abs().GreaterThan(totalTolerance) {
		return CheckResult{}, fmt.Errorf("%w: new_total %s does not match allocations summing to %s",
			ErrMalformedResponse, remoteTotal, result.NewTotal)
	}
	if result.IsOverallocated != *data.IsOverallocated {
		return CheckResult{}, fmt.Errorf("%w: is_overallocated contradicts new_total %s and limit %s",
			ErrMalformedResponse, remoteTotal, limit)
	}
	return result, nil
}

// isNetworkError reports timeouts, refused connections and dropped bodies.
func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
