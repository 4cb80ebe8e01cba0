// Package cart implements the cart engine (C4): the state machine,
// pricing pipeline, discount rules, payment strategies and finalization
// that together make up the system's core aggregate.
package cart

import "github.com/kugelpos/kugel-backend/internal/domain"

// transitions enumerates, for every (state, event) pair the engine
// accepts, the resulting state. Anything absent from this table is an
// invalid-event error (spec §4.4.1). CancelCart is valid from every
// non-terminal state and is applied as a blanket rule in allows, not
// listed per-state here.
var transitions = map[domain.CartStatus]map[domain.CartEvent]domain.CartStatus{
	domain.CartStatusInitial: {
		domain.EventCreate: domain.CartStatusIdle,
	},
	domain.CartStatusIdle: {
		domain.EventAddItems: domain.CartStatusEnteringItem,
	},
	domain.CartStatusEnteringItem: {
		domain.EventAddItems:            domain.CartStatusEnteringItem,
		domain.EventCancelLine:          domain.CartStatusEnteringItem,
		domain.EventUnitPriceOverride:   domain.CartStatusEnteringItem,
		domain.EventAddLineDiscount:     domain.CartStatusEnteringItem,
		domain.EventAddSubtotalDiscount: domain.CartStatusEnteringItem,
		domain.EventSubtotal:            domain.CartStatusPaying,
	},
	domain.CartStatusPaying: {
		domain.EventAddPayment:      domain.CartStatusPaying,
		domain.EventResumeItemEntry: domain.CartStatusEnteringItem,
		domain.EventBill:            domain.CartStatusCompleted,
	},
}

// allows reports whether event is accepted from status, and if so the
// resulting status.
func allows(status domain.CartStatus, event domain.CartEvent) (domain.CartStatus, bool) {
	if event == domain.EventCancelCart {
		switch status {
		case domain.CartStatusCompleted, domain.CartStatusCancelled:
			return status, false
		default:
			return domain.CartStatusCancelled, true
		}
	}
	next, ok := transitions[status][event]
	return next, ok
}
