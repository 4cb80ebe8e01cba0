package stock

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// TenantRepository returns the stock Repository scoped to tenantID, i.e.
// one backed by a gateway opened against that tenant's schema.
type TenantRepository func(tenantID string) *Repository

// Scheduler runs the per-tenant snapshot job of spec §4.6.3: once a
// minute it checks every tenant's SnapshotSchedule for a due firing and,
// if due, copies every Stock row for the schedule's target stores into a
// StockSnapshot. RetentionDays governs the snapshot's lifetime only at
// reap time (see Repository.DeleteExpiredSnapshots); the snapshot itself
// stores no expiry.
type Scheduler struct {
	schedules  *Repository // commons-scoped: schedules live in commons like delivery_status
	forTenant  TenantRepository
	cron       *cron.Cron

	mu       sync.Mutex
	running  map[string]bool // tenantID currently executing, suppresses overlap
}

func NewScheduler(schedules *Repository, forTenant TenantRepository) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		forTenant: forTenant,
		cron:      cron.New(),
		running:   map[string]bool{},
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc("* * * * *", func() { s.tick(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

func (s *Scheduler) tick(ctx context.Context) {
	schedules, err := s.schedules.ListSchedules(ctx)
	if err != nil {
		log.Error().Err(err).Msg("stock: scheduler failed to list snapshot schedules")
		return
	}
	now := time.Now().UTC()
	for i := range schedules {
		sch := schedules[i]
		if !sch.Enabled || !isDue(&sch, now) {
			continue
		}
		if !s.claim(sch.TenantID) {
			continue
		}
		go func(sch domain.SnapshotSchedule) {
			defer s.release(sch.TenantID)
			s.runForTenant(ctx, sch, now)
		}(sch)
	}
}

func (s *Scheduler) claim(tenantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[tenantID] {
		return false
	}
	s.running[tenantID] = true
	return true
}

func (s *Scheduler) release(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, tenantID)
}

// isDue reports whether sch should fire at now, matching hour/minute
// exactly and, for weekly/monthly cadences, the day as well. A one-minute
// tick granularity means each due slot fires exactly once as long as the
// scheduler stays up; a missed tick (e.g. process restart) is simply
// skipped until the next cadence, which spec §4.6.3 accepts.
func isDue(sch *domain.SnapshotSchedule, now time.Time) bool {
	if now.Hour() != sch.Hour || now.Minute() != sch.Minute {
		return false
	}
	switch sch.Interval {
	case domain.SnapshotWeekly:
		return sch.DayOfWeek != nil && int(now.Weekday()) == *sch.DayOfWeek
	case domain.SnapshotMonthly:
		return sch.DayOfMonth != nil && now.Day() == *sch.DayOfMonth
	default:
		return true
	}
}

// targetStores resolves sch.TargetStores against repo, expanding the
// literal "all" into every store code currently holding a stock row
// (spec §4.6.3: "or literal 'all' to enumerate"). Any other entry is
// taken as a literal store code.
func (s *Scheduler) targetStores(ctx context.Context, repo *Repository, sch *domain.SnapshotSchedule) ([]string, error) {
	for _, store := range sch.TargetStores {
		if store == "all" {
			return repo.ListDistinctStoreCodes(ctx)
		}
	}
	return sch.TargetStores, nil
}

func (s *Scheduler) runForTenant(ctx context.Context, sch domain.SnapshotSchedule, now time.Time) {
	repo := s.forTenant(sch.TenantID)
	stores, err := s.targetStores(ctx, repo, &sch)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", sch.TenantID).Msg("stock: failed to resolve target stores")
		return
	}
	for _, store := range stores {
		if err := s.snapshotStore(ctx, repo, sch, store, now); err != nil {
			log.Error().Err(err).Str("tenant_id", sch.TenantID).Str("store_code", store).
				Msg("stock: snapshot failed")
		}
	}
	sch.LastExecutedAt = &now
	if err := s.schedules.SaveSchedule(ctx, &sch); err != nil {
		log.Error().Err(err).Str("tenant_id", sch.TenantID).Msg("stock: failed to record snapshot execution")
	}
}

func (s *Scheduler) snapshotStore(ctx context.Context, repo *Repository, sch domain.SnapshotSchedule, storeCode string, now time.Time) error {
	items, err := repo.ListStocks(ctx, storeCode)
	if err != nil {
		return err
	}
	snap := &domain.StockSnapshot{
		TenantID:         sch.TenantID,
		StoreCode:        storeCode,
		Items:            items,
		GenerateDateTime: now,
	}
	return repo.SaveSnapshot(ctx, snap)
}
