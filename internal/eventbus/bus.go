// Package eventbus implements the guaranteed-delivery event pipeline (C5):
// a publisher that records per-subscriber DeliveryStatus before handing the
// payload to a pluggable Bus, an idempotent subscriber-side dedupe helper
// backed by Redis, and a republisher that periodically re-publishes events
// published within a configurable window that are still undelivered.
package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Known bus topics, per spec §6.
const (
	TopicTransactionLog = "topic-tranlog"
	TopicCashLog        = "topic-cashlog"
	TopicOpenCloseLog   = "topic-opencloselog"
)

// Known pubsub groups the topics above are published on.
const (
	PubsubTransactionReport = "pubsub-tranlog-report"
	PubsubCashReport        = "pubsub-cashlog-report"
	PubsubOpenCloseReport   = "pubsub-opencloselog-report"
)

// Bus is the seam between the publisher and whatever carries events to
// subscribers. LocalBus below is the in-process default; a real deployment
// swaps it for a client of an actual broker without touching Publisher.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Handler processes one delivered payload for a subscriber named in
// Subscribe's serviceName.
type Handler func(ctx context.Context, payload []byte) error

// LocalBus fans a published payload out to every subscriber of a topic,
// each on its own goroutine, mirroring the parallel-task model of spec §5.
// It never blocks Publish on subscriber completion and never surfaces a
// subscriber's error to the publisher - the republisher is what notices
// and retries undelivered work.
type LocalBus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscription
}

type subscription struct {
	serviceName string
	handle      Handler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subscribers: make(map[string][]subscription)}
}

// Subscribe registers serviceName's handler for topic. The app wiring
// subscribes "stock" to TopicTransactionLog and "journal" to the cash-log
// and open/close-log topics; the journal receives transaction logs
// synchronously through cart.JournalWriter instead.
func (b *LocalBus) Subscribe(topic, serviceName string, handle Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], subscription{serviceName: serviceName, handle: handle})
}

// ServiceNames returns the subscriber names registered for topic, used by
// the publisher to seed each DeliveryStatus's per-service entries.
func (b *LocalBus) ServiceNames(topic string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := b.subscribers[topic]
	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.serviceName
	}
	return names
}

// Publish fans payload out to topic's subscribers asynchronously. It
// always returns nil: delivery failures are a subscriber-local concern,
// surfaced only through DeliveryStatus and picked up by the republisher.
func (b *LocalBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		go func(sub subscription) {
			if err := sub.handle(ctx, payload); err != nil {
				log.Error().Err(err).Str("topic", topic).Str("service", sub.serviceName).
					Msg("eventbus: subscriber handler failed, awaiting republish")
			}
		}(sub)
	}
	return nil
}
