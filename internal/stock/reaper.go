package stock

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Reaper is the per-tenant half of the TTL-index-equivalent delete sweep:
// a cron job that walks every tenant known to have a SnapshotSchedule and
// deletes its StockSnapshot rows older than that schedule's *current*
// RetentionDays. eventbus.Reaper is the commons-scoped other half,
// covering delivery_status.
type Reaper struct {
	schedules *Repository // commons-scoped: same source Scheduler reads tenant IDs from
	forTenant TenantRepository
	interval  time.Duration
	cron      *cron.Cron
}

func NewReaper(schedules *Repository, forTenant TenantRepository, interval time.Duration) *Reaper {
	return &Reaper{schedules: schedules, forTenant: forTenant, interval: interval, cron: cron.New()}
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
	schedules, err := r.schedules.ListSchedules(ctx)
	if err != nil {
		log.Error().Err(err).Msg("stock: reaper failed to list tenants")
		return
	}
	now := time.Now().UTC()
	seen := make(map[string]bool, len(schedules))
	for _, sch := range schedules {
		if seen[sch.TenantID] {
			continue
		}
		seen[sch.TenantID] = true

		repo := r.forTenant(sch.TenantID)
		if repo == nil {
			continue
		}
		n, err := repo.DeleteExpiredSnapshots(ctx, now, sch.RetentionDays)
		if err != nil {
			log.Error().Err(err).Str("tenant_id", sch.TenantID).Msg("stock: reaper failed to delete expired snapshots")
			continue
		}
		if n > 0 {
			log.Info().Str("tenant_id", sch.TenantID).Int("count", n).Msg("stock: reaper deleted expired snapshots")
		}
	}
}
