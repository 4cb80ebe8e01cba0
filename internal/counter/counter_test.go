package counter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/storage"
)

// fakeGateway exercises only AtomicCounterNext, in-process, to pin down the
// rollover invariant from spec §4.2 without a database.
type fakeGateway struct {
	storage.Gateway
	counts map[string]map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{counts: map[string]map[string]int{}}
}

func (g *fakeGateway) AtomicCounterNext(ctx context.Context, collection, key, field string, start, end int) (int, error) {
	byField, ok := g.counts[key]
	if !ok {
		byField = map[string]int{}
		g.counts[key] = byField
	}
	current, exists := byField[field]
	if !exists || current >= end {
		byField[field] = start
	} else {
		byField[field] = current + 1
	}
	return byField[field], nil
}

func TestNext_CyclesWithinBounds(t *testing.T) {
	gw := newFakeGateway()
	svc := New(gw)

	seen := map[int]bool{}
	for i := 0; i < 5; i++ {
		v, err := svc.Next(context.Background(), "T0001-001-1", "receipt_no", 1, 5)
		require.NoError(t, err)
		assert.False(t, seen[v], "value %d repeated within one cycle", v)
		seen[v] = true
	}
	assert.Len(t, seen, 5)

	wrapped, err := svc.Next(context.Background(), "T0001-001-1", "receipt_no", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, wrapped)
}

func TestNext_IndependentPerCounterType(t *testing.T) {
	gw := newFakeGateway()
	svc := New(gw)

	receipt, err := svc.Next(context.Background(), "T0001-001-1", "receipt_no", 1, 100)
	require.NoError(t, err)
	txn, err := svc.Next(context.Background(), "T0001-001-1", "transaction_no", 1, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, receipt)
	assert.Equal(t, 1, txn)
}
