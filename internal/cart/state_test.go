package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

func TestAllows_HappyPathSequence(t *testing.T) {
	status := domain.CartStatusInitial
	seq := []domain.CartEvent{
		domain.EventCreate, domain.EventAddItems, domain.EventSubtotal,
		domain.EventAddPayment, domain.EventBill,
	}
	want := []domain.CartStatus{
		domain.CartStatusIdle, domain.CartStatusEnteringItem, domain.CartStatusPaying,
		domain.CartStatusPaying, domain.CartStatusCompleted,
	}
	for i, ev := range seq {
		next, ok := allows(status, ev)
		assert.True(t, ok, "event %s from %s", ev, status)
		assert.Equal(t, want[i], next)
		status = next
	}
}

func TestAllows_RejectsUnknownTransition(t *testing.T) {
	_, ok := allows(domain.CartStatusIdle, domain.EventAddPayment)
	assert.False(t, ok)
}

func TestAllows_CancelCartBlanketRule(t *testing.T) {
	for _, s := range []domain.CartStatus{domain.CartStatusIdle, domain.CartStatusEnteringItem, domain.CartStatusPaying} {
		next, ok := allows(s, domain.EventCancelCart)
		assert.True(t, ok)
		assert.Equal(t, domain.CartStatusCancelled, next)
	}
	for _, s := range []domain.CartStatus{domain.CartStatusCompleted, domain.CartStatusCancelled} {
		_, ok := allows(s, domain.EventCancelCart)
		assert.False(t, ok)
	}
}

func TestAllows_ResumeItemEntryReturnsFromPaying(t *testing.T) {
	next, ok := allows(domain.CartStatusPaying, domain.EventResumeItemEntry)
	assert.True(t, ok)
	assert.Equal(t, domain.CartStatusEnteringItem, next)
}
