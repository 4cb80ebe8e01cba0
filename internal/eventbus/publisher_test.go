package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/testutil"
)

func newTestPublisher(bus Bus) (*Publisher, *Repository) {
	repo := NewRepository(testutil.NewMockGateway())
	subscribers := map[string][]string{TopicTransactionLog: {"stock", "journal"}}
	return NewPublisher(repo, bus, subscribers), repo
}

func TestPublisher_Publish_WritesDeliveryStatusWithPendingServices(t *testing.T) {
	bus := testutil.NewMockBus()
	pub, repo := newTestPublisher(bus)

	eventID, err := pub.Publish(context.Background(), TopicTransactionLog, []byte(`{"transaction_no":1}`))
	require.NoError(t, err)

	status, err := repo.Get(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusPublished, status.Status)
	assert.Len(t, status.Services, 2)
	for _, s := range status.Services {
		assert.Equal(t, domain.ServiceStatusPending, s.Status)
	}
	assert.Equal(t, 1, bus.Count(TopicTransactionLog))
}

func TestPublisher_Publish_SucceedsEvenWhenBusFails(t *testing.T) {
	bus := testutil.NewMockBus()
	bus.PublishFn = func(topic string, payload []byte) error { return assert.AnError }
	pub, repo := newTestPublisher(bus)

	eventID, err := pub.Publish(context.Background(), TopicTransactionLog, []byte(`{}`))
	require.NoError(t, err)

	status, err := repo.Get(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusPublished, status.Status)
}

func TestPublisher_MarkDelivered_RecomputesOverallStatus(t *testing.T) {
	bus := testutil.NewMockBus()
	pub, repo := newTestPublisher(bus)

	eventID, err := pub.Publish(context.Background(), TopicTransactionLog, []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, pub.MarkDelivered(context.Background(), eventID, "stock", domain.ServiceStatusDelivered, ""))
	status, err := repo.Get(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusPublished, status.Status, "journal still pending")

	require.NoError(t, pub.MarkDelivered(context.Background(), eventID, "journal", domain.ServiceStatusDelivered, ""))
	status, err = repo.Get(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusDelivered, status.Status)
}

func TestPublisher_MarkDelivered_FailedServiceYieldsPartiallyDelivered(t *testing.T) {
	bus := testutil.NewMockBus()
	pub, repo := newTestPublisher(bus)

	eventID, err := pub.Publish(context.Background(), TopicTransactionLog, []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, pub.MarkDelivered(context.Background(), eventID, "stock", domain.ServiceStatusFailed, "boom"))
	status, err := repo.Get(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusPartiallyDelivered, status.Status)
}
