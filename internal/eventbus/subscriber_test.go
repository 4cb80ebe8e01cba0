package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

type fakeDeduper struct {
	mu     sync.Mutex
	claims map[string]bool
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{claims: map[string]bool{}}
}

func (f *fakeDeduper) Claim(ctx context.Context, serviceName, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := serviceName + ":" + eventID
	if f.claims[key] {
		return false, nil
	}
	f.claims[key] = true
	return true, nil
}

type callbackRecord struct {
	eventID     string
	serviceName string
	status      domain.DeliveryServiceStatus
	message     string
}

func recordingCallback() (Callback, func() []callbackRecord) {
	var mu sync.Mutex
	var records []callbackRecord
	cb := func(ctx context.Context, eventID, serviceName string, status domain.DeliveryServiceStatus, message string) error {
		mu.Lock()
		defer mu.Unlock()
		records = append(records, callbackRecord{eventID, serviceName, status, message})
		return nil
	}
	return cb, func() []callbackRecord {
		mu.Lock()
		defer mu.Unlock()
		return append([]callbackRecord(nil), records...)
	}
}

func TestSubscribe_ProcessesOnceAndReportsDelivered(t *testing.T) {
	bus := NewLocalBus()
	dedupe := newFakeDeduper()
	cb, records := recordingCallback()

	var processedCount int
	var mu sync.Mutex
	Subscribe(bus, dedupe, cb, TopicTransactionLog, "stock", func(ctx context.Context, data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		processedCount++
		return nil
	}, nil)

	eventID := "11111111-1111-1111-1111-111111111111"
	envelope, err := wrapEnvelope(uuid.MustParse(eventID), []byte(`{"item_code":"ITEM001"}`))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), TopicTransactionLog, envelope))
	require.NoError(t, bus.Publish(context.Background(), TopicTransactionLog, envelope))

	require.Eventually(t, func() bool {
		return len(records()) >= 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, processedCount, "duplicate delivery must not reprocess")
	mu.Unlock()

	recs := records()
	require.Len(t, recs, 1)
	assert.Equal(t, eventID, recs[0].eventID)
	assert.Equal(t, domain.ServiceStatusDelivered, recs[0].status)
}

func TestSubscribe_ProcessingFailureReportsFailed(t *testing.T) {
	bus := NewLocalBus()
	dedupe := newFakeDeduper()
	cb, records := recordingCallback()

	Subscribe(bus, dedupe, cb, TopicTransactionLog, "stock", func(ctx context.Context, data []byte) error {
		return errors.New("stock update failed")
	}, nil)

	eventID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	envelope, err := wrapEnvelope(eventID, []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), TopicTransactionLog, envelope))

	require.Eventually(t, func() bool { return len(records()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.ServiceStatusFailed, records()[0].status)
}
