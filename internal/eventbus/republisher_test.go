package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/testutil"
)

func TestRepublisher_Sweep_RepublishesUndeliveredWithinWindow(t *testing.T) {
	bus := testutil.NewMockBus()
	pub, repo := newTestPublisher(bus)

	eventID, err := pub.Publish(context.Background(), TopicTransactionLog, []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, 1, bus.Count(TopicTransactionLog))

	r := NewRepublisher(repo, bus, time.Minute, 24*time.Hour)
	r.sweep(context.Background())

	assert.Equal(t, 2, bus.Count(TopicTransactionLog), "undelivered event republished")
	_ = eventID
}

func TestRepublisher_Sweep_SkipsFullyDeliveredEvents(t *testing.T) {
	bus := testutil.NewMockBus()
	pub, repo := newTestPublisher(bus)

	eventID, err := pub.Publish(context.Background(), TopicTransactionLog, []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, pub.MarkDelivered(context.Background(), eventID, "stock", "delivered", ""))
	require.NoError(t, pub.MarkDelivered(context.Background(), eventID, "journal", "delivered", ""))

	r := NewRepublisher(repo, bus, time.Minute, 24*time.Hour)
	r.sweep(context.Background())

	assert.Equal(t, 1, bus.Count(TopicTransactionLog), "delivered event must not be republished")
}

func TestRepublisher_Sweep_SkipsEventsOutsideWindow(t *testing.T) {
	bus := testutil.NewMockBus()
	pub, repo := newTestPublisher(bus)

	_, err := pub.Publish(context.Background(), TopicTransactionLog, []byte(`{}`))
	require.NoError(t, err)

	r := NewRepublisher(repo, bus, time.Minute, -time.Hour)
	r.sweep(context.Background())

	assert.Equal(t, 1, bus.Count(TopicTransactionLog), "event outside window must not be republished")
}
