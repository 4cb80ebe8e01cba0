// Package counter allocates receipt numbers and transaction numbers
// without gaps within a cycle and without duplicates under concurrent
// access from many request handlers (spec §4.2).
package counter

import (
	"context"
	"math"

	"github.com/kugelpos/kugel-backend/internal/storage"
)

const collectionName = "terminal_counters"

// MaxCounter is the default upper bound of a counter cycle when the caller
// does not supply one, mirroring the original's use of the platform's max
// integer as an effectively unbounded ceiling.
const MaxCounter = math.MaxInt32

// Service is C2: a thin wrapper over the storage gateway's atomic
// conditional-increment primitive. It holds no in-process state of its
// own - correctness comes entirely from AtomicCounterNext being a single
// atomic storage operation, since multiple service instances coexist.
type Service struct {
	gateway storage.Gateway
}

func New(gateway storage.Gateway) *Service {
	return &Service{gateway: gateway}
}

// Next returns the next value in terminalID's counterType sequence,
// cycling through [start, end] and wrapping back to start once end is
// reached or exceeded.
func (s *Service) Next(ctx context.Context, terminalID, counterType string, start, end int) (int, error) {
	if end <= 0 {
		end = MaxCounter
	}
	if start <= 0 {
		start = 1
	}
	return s.gateway.AtomicCounterNext(ctx, collectionName, terminalID, counterType, start, end)
}
