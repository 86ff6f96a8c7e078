package metrics

import (
	"github.com/tppms/tppms/internal/event_bus"
)

// SubscribeAllocationEvents counts every allocation event published on bus.
func SubscribeAllocationEvents(bus *event_bus.EventBus) (unsubscribe func()) {
	types := []event_bus.EventType{
		event_bus.AllocationSavedType,
		event_bus.AllocationKeptOverLimitType,
		event_bus.AllocationWeekCopiedType,
	}
	unsubscribes := make([]func(), 0, len(types))
	for _, eventType := range types {
		unsubscribes = append(unsubscribes, bus.Subscribe(eventType, func(e event_bus.Event) error {
			AllocationEvents.WithLabelValues(string(e.Type)).Inc()
			return nil
		}))
	}
	return func() {
		for _, u := range unsubscribes {
			u()
		}
	}
}
