package eventbus

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/notify"
)

// Callback reports a service's outcome for an event_id back to the
// publisher, per the subscriber contract's step 4 (spec §4.5.2).
type Callback func(ctx context.Context, eventID string, serviceName string, status domain.DeliveryServiceStatus, message string) error

// Subscribe wraps process with the idempotent-receive contract of spec
// §4.5.2 and registers the result on bus under topic for serviceName.
// process only sees the inner domain payload; dedupe and delivery-status
// callback are handled here so every subscriber gets them identically.
// notifier may be nil; a subscriber-side exception (spec §7) fires a
// best-effort Slack notification through it before the error is returned
// to the bus.
func Subscribe(bus *LocalBus, dedupe Deduper, callback Callback, topic, serviceName string, process func(ctx context.Context, data []byte) error, notifier *notify.SlackNotifier) {
	bus.Subscribe(topic, serviceName, func(ctx context.Context, payload []byte) error {
		env, err := UnwrapEnvelope(payload)
		if err != nil {
			return fmt.Errorf("eventbus: malformed envelope for %s: %w", serviceName, err)
		}
		eventID := env.EventID.String()

		claimed, err := dedupe.Claim(ctx, serviceName, eventID)
		if err != nil {
			return fmt.Errorf("eventbus: dedupe claim for %s: %w", serviceName, err)
		}
		if !claimed {
			log.Debug().Str("service", serviceName).Str("event_id", eventID).
				Msg("eventbus: duplicate delivery, skipping")
			return nil
		}

		if err := process(ctx, env.Data); err != nil {
			if cbErr := callback(ctx, eventID, serviceName, domain.ServiceStatusFailed, err.Error()); cbErr != nil {
				log.Error().Err(cbErr).Str("service", serviceName).Str("event_id", eventID).
					Msg("eventbus: failed to record failed delivery status")
			}
			notifier.NotifyFatal(ctx, "eventbus.subscriber."+serviceName, err)
			return err
		}

		return callback(ctx, eventID, serviceName, domain.ServiceStatusDelivered, "")
	})
}
