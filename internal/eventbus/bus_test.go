package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBus_PublishFanOutToMultipleSubscribers(t *testing.T) {
	bus := NewLocalBus()

	var mu sync.Mutex
	received := map[string][]byte{}

	bus.Subscribe(TopicTransactionLog, "stock", func(ctx context.Context, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received["stock"] = payload
		return nil
	})
	bus.Subscribe(TopicTransactionLog, "journal", func(ctx context.Context, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received["journal"] = payload
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), TopicTransactionLog, []byte(`{"hello":"world"}`)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []byte(`{"hello":"world"}`), received["stock"])
	assert.Equal(t, []byte(`{"hello":"world"}`), received["journal"])
}

func TestLocalBus_ServiceNames(t *testing.T) {
	bus := NewLocalBus()
	bus.Subscribe(TopicCashLog, "journal", func(ctx context.Context, payload []byte) error { return nil })

	assert.ElementsMatch(t, []string{"journal"}, bus.ServiceNames(TopicCashLog))
	assert.Empty(t, bus.ServiceNames(TopicOpenCloseLog))
}

func TestLocalBus_PublishWithNoSubscribersSucceeds(t *testing.T) {
	bus := NewLocalBus()
	assert.NoError(t, bus.Publish(context.Background(), "topic-nothing-here", []byte(`{}`)))
}
