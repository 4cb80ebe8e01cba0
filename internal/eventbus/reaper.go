package eventbus

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Reaper is the commons-scoped half of the TTL-index-equivalent delete
// sweep: it deletes DeliveryStatus rows that reached "delivered" more than
// retention ago. stock.Reaper is the per-tenant other half, covering
// stock_snapshots.
type Reaper struct {
	repo      *Repository
	retention time.Duration
	interval  time.Duration
	cron      *cron.Cron
}

func NewReaper(repo *Repository, interval, retention time.Duration) *Reaper {
	return &Reaper{repo: repo, retention: retention, interval: interval, cron: cron.New()}
}

func (r *Reaper) Start(ctx context.Context) error {
	spec := "@every " + r.interval.String()
	if _, err := r.cron.AddFunc(spec, func() { r.sweep(ctx) }); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *Reaper) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
}

func (r *Reaper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.retention)
	n, err := r.repo.DeleteDeliveredOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("eventbus: reaper failed to delete aged delivery status rows")
		return
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("eventbus: reaper deleted aged delivery status rows")
	}
}
