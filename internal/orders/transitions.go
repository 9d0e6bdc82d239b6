package orders

import "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"

// allowedTransitions maps each status to the statuses it may move to. Any pair
// not listed here is rejected before touching the database.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusPaymentPending,
		enums.OrderStatusPaid,
		enums.OrderStatusPaymentFailed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPaymentPending: {
		enums.OrderStatusPaid,
		enums.OrderStatusPaymentFailed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPaymentFailed: {
		enums.OrderStatusPaymentPending,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPaid: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusProcessing,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusProcessing: {
		enums.OrderStatusShipped,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusDelivered,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusReturned,
	},
	enums.OrderStatusCancelled: {},
	enums.OrderStatusReturned:  {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// SourcesFor returns every status from which the target is reachable. The
// repository uses this set as the guard predicate of the conditional write.
func SourcesFor(target enums.OrderStatus) []enums.OrderStatus {
	var sources []enums.OrderStatus
	for from, targets := range allowedTransitions {
		for _, candidate := range targets {
			if candidate == target {
				sources = append(sources, from)
				break
			}
		}
	}
	return sources
}
