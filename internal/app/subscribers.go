package app

import (
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/event_bus"
	"github.com/tppms/tppms/internal/metrics"
)

// RegisterSubscribers attaches metrics and audit logging to the allocation events.
func RegisterSubscribers(bus *event_bus.EventBus) {
	metrics.SubscribeAllocationEvents(bus)

	event_bus.SubscribeTyped(bus, event_bus.AllocationSavedType, func(e event_bus.EventT[event_bus.AllocationSaved]) error {
		d := e.Data
		log.WithFields(log.Fields{
			"event":        e.Type,
			"user_id":      d.UserId,
			"project_id":   d.ProjectId,
			"week":         d.Week,
			"year":         d.Year,
			"billable":     d.Billable.String(),
			"non_billable": d.NonBillable.String(),
			"leave":        d.Leave.String(),
			"updated_by":   d.UpdatedBy,
		}).Info("allocation saved")
		return nil
	})
	event_bus.SubscribeTyped(bus, event_bus.AllocationKeptOverLimitType, func(e event_bus.EventT[event_bus.AllocationKeptOverLimit]) error {
		d := e.Data
		log.WithFields(log.Fields{
			"event":      e.Type,
			"user_id":    d.UserId,
			"project_id": d.ProjectId,
			"week":       d.Week,
			"year":       d.Year,
			"new_total":  d.NewTotal.String(),
			"over_by":    d.OverBy.String(),
		}).Warn("allocation kept over the weekly limit")
		return nil
	})
	event_bus.SubscribeTyped(bus, event_bus.AllocationWeekCopiedType, func(e event_bus.EventT[event_bus.AllocationWeekCopied]) error {
		d := e.Data
		log.WithFields(log.Fields{
			"event":       e.Type,
			"project_id":  d.ProjectId,
			"source_week": d.SourceWeek,
			"target_week": d.TargetWeek,
			"year":        d.Year,
			"copied":      d.SuccessCount,
			"failed":      d.ErrorCount,
		}).Info("allocation week copied")
		return nil
	})
}
