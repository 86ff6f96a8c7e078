package event_bus

import "github.com/shopspring/decimal"

const (
	AllocationSavedType         EventType = "allocation.saved"
	AllocationKeptOverLimitType EventType = "allocation.kept_over_limit"
	AllocationWeekCopiedType    EventType = "allocation.week_copied"
)

// AllocationSaved is published after an hour entry was created or updated.
type AllocationSaved struct {
	UserId      int
	ProjectId   int
	Week        int
	Year        int
	Billable    decimal.Decimal
	NonBillable decimal.Decimal
	Leave       decimal.Decimal
	UpdatedBy   string
}

// AllocationKeptOverLimit is published when an editor persisted hours that exceed the weekly limit.
type AllocationKeptOverLimit struct {
	UserId    int
	ProjectId int
	Week      int
	Year      int
	NewTotal  decimal.Decimal
	OverBy    decimal.Decimal
}

type AllocationWeekCopied struct {
	ProjectId    int
	SourceWeek   int
	TargetWeek   int
	Year         int
	SuccessCount int
	ErrorCount   int
}
