package eventbus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// Publisher implements the publish path of spec §4.5.1: write the
// DeliveryStatus first, then hand the payload to the bus, returning
// success to the caller even when the bus call fails.
type Publisher struct {
	repo        *Repository
	bus         Bus
	subscribers map[string][]string // topic -> known subscriber service names
}

// NewPublisher builds a Publisher. subscribers declares, per topic, the
// services expected to acknowledge delivery; the app wiring declares
// "stock" for TopicTransactionLog and "journal" for the cash-in/out and
// open/close topics (spec §4.5.1).
func NewPublisher(repo *Repository, bus Bus, subscribers map[string][]string) *Publisher {
	return &Publisher{repo: repo, bus: bus, subscribers: subscribers}
}

// Publish generates a fresh event_id, records a DeliveryStatus with one
// pending entry per known subscriber of topic, then publishes to the bus.
// The returned error is non-nil only if the DeliveryStatus write itself
// failed; a bus failure is logged and left for the republisher.
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) (uuid.UUID, error) {
	eventID := uuid.New()
	now := time.Now().UTC()

	names := p.subscribers[topic]
	services := make([]domain.ServiceDelivery, 0, len(names))
	for _, name := range names {
		services = append(services, domain.ServiceDelivery{ServiceName: name, Status: domain.ServiceStatusPending})
	}

	envelope, err := wrapEnvelope(eventID, payload)
	if err != nil {
		return uuid.Nil, err
	}

	status := &domain.DeliveryStatus{
		EventID:       eventID,
		Topic:         topic,
		Payload:       envelope,
		PublishedAt:   now,
		Services:      services,
		Status:        domain.DeliveryStatusPublished,
		LastUpdatedAt: now,
	}
	if err := p.repo.Create(ctx, status); err != nil {
		return uuid.Nil, err
	}

	if err := p.bus.Publish(ctx, topic, envelope); err != nil {
		log.Error().Err(err).Str("topic", topic).Str("event_id", eventID.String()).
			Msg("eventbus: bus publish failed, will retry via republisher")
	}
	return eventID, nil
}

// MarkDelivered is the publisher-side handler for the subscriber callback
// contract of spec §4.5.2: "{event_id, service_name, status, message?}".
func (p *Publisher) MarkDelivered(ctx context.Context, eventID uuid.UUID, serviceName string, status domain.DeliveryServiceStatus, message string) error {
	return p.repo.MarkServiceDelivered(ctx, eventID, serviceName, status, message)
}

// Callback adapts MarkDelivered to the Callback signature Subscribe
// expects, for in-process subscribers wired against this Publisher.
func (p *Publisher) Callback() Callback {
	return func(ctx context.Context, eventID string, serviceName string, status domain.DeliveryServiceStatus, message string) error {
		id, err := uuid.Parse(eventID)
		if err != nil {
			return err
		}
		return p.MarkDelivered(ctx, id, serviceName, status, message)
	}
}
