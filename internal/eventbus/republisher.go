package eventbus

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Republisher re-publishes DeliveryStatus rows created within the last
// window that are still undelivered, per spec §4.5.3. It cohabits the publisher's runtime but
// runs on its own scheduler, one instance per publisher process; running
// several instances concurrently is safe since subscribers dedupe by
// event_id.
type Republisher struct {
	repo     *Repository
	bus      Bus
	interval time.Duration
	window   time.Duration
	cron     *cron.Cron
}

// NewRepublisher builds a Republisher that fires every interval, retrying
// anything published within window that has not reached "delivered".
func NewRepublisher(repo *Repository, bus Bus, interval, window time.Duration) *Republisher {
	return &Republisher{
		repo:     repo,
		bus:      bus,
		interval: interval,
		window:   window,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start schedules the republish sweep at the configured interval and
// begins running it.
func (r *Republisher) Start(ctx context.Context) error {
	spec := "@every " + r.interval.String()
	if _, err := r.cron.AddFunc(spec, func() { r.sweep(ctx) }); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for any in-flight sweep to finish,
// per spec §5's shutdown order (schedulers stop before streams/pools).
func (r *Republisher) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
}

func (r *Republisher) sweep(ctx context.Context) {
	since := time.Now().Add(-r.window)
	pending, err := r.repo.ListUndeliveredSince(ctx, since)
	if err != nil {
		log.Error().Err(err).Msg("eventbus: republisher failed to list undelivered deliveries")
		return
	}
	for _, d := range pending {
		if err := r.bus.Publish(ctx, d.Topic, d.Payload); err != nil {
			log.Error().Err(err).Str("event_id", d.EventID.String()).Str("topic", d.Topic).
				Msg("eventbus: republish attempt failed, will retry next sweep")
			continue
		}
		log.Debug().Str("event_id", d.EventID.String()).Str("topic", d.Topic).Msg("eventbus: republished")
	}
}
