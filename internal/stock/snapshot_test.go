package stock

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/testutil"
)

func TestIsDue_Daily(t *testing.T) {
	sch := &domain.SnapshotSchedule{Interval: domain.SnapshotDaily, Hour: 3, Minute: 30}
	now := time.Date(2026, 7, 31, 3, 30, 0, 0, time.UTC)
	assert.True(t, isDue(sch, now))
	assert.False(t, isDue(sch, now.Add(time.Minute)))
}

func TestIsDue_Weekly_RequiresMatchingDay(t *testing.T) {
	sunday := 0
	sch := &domain.SnapshotSchedule{Interval: domain.SnapshotWeekly, Hour: 0, Minute: 0, DayOfWeek: &sunday}
	aSunday := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	aMonday := aSunday.AddDate(0, 0, 1)
	assert.True(t, isDue(sch, aSunday))
	assert.False(t, isDue(sch, aMonday))
}

func TestScheduler_RunForTenant_SavesSnapshotAndRecordsExecution(t *testing.T) {
	gateway := testutil.NewMockGateway()
	tenantRepo := NewRepository(gateway)

	_, err := tenantRepo.AtomicIncrement(context.Background(), "T0001", "ST01", "ITEM001", decimal.NewFromInt(5))
	require.NoError(t, err)

	schedulesRepo := NewRepository(gateway)
	scheduler := NewScheduler(schedulesRepo, func(tenantID string) *Repository { return tenantRepo })

	now := time.Now().UTC()
	sch := domain.SnapshotSchedule{TenantID: "T0001", Enabled: true, Interval: domain.SnapshotDaily, RetentionDays: 30, TargetStores: []string{"ST01"}}
	scheduler.runForTenant(context.Background(), sch, now)

	snaps, err := schedulesRepo.ListSnapshotsByDateRange(context.Background(), "ST01", now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Len(t, snaps[0].Items, 1)

	updated, err := schedulesRepo.GetSchedule(context.Background(), "T0001")
	require.NoError(t, err)
	require.NotNil(t, updated.LastExecutedAt)
}

func TestScheduler_RunForTenant_AllTargetStoresEnumeratesEveryStore(t *testing.T) {
	gateway := testutil.NewMockGateway()
	tenantRepo := NewRepository(gateway)

	ctx := context.Background()
	_, err := tenantRepo.AtomicIncrement(ctx, "T0001", "ST01", "ITEM001", decimal.NewFromInt(5))
	require.NoError(t, err)
	_, err = tenantRepo.AtomicIncrement(ctx, "T0001", "ST02", "ITEM002", decimal.NewFromInt(7))
	require.NoError(t, err)

	schedulesRepo := NewRepository(gateway)
	scheduler := NewScheduler(schedulesRepo, func(tenantID string) *Repository { return tenantRepo })

	now := time.Now().UTC()
	sch := domain.SnapshotSchedule{TenantID: "T0001", Enabled: true, Interval: domain.SnapshotDaily, RetentionDays: 30, TargetStores: []string{"all"}}
	scheduler.runForTenant(ctx, sch, now)

	snapsST01, err := schedulesRepo.ListSnapshotsByDateRange(ctx, "ST01", now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, snapsST01, 1, "literal \"all\" must enumerate ST01")

	snapsST02, err := schedulesRepo.ListSnapshotsByDateRange(ctx, "ST02", now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, snapsST02, 1, "literal \"all\" must enumerate ST02")
}

func TestDeleteExpiredSnapshots_RetentionChangeExpiresExistingSnapshots(t *testing.T) {
	gateway := testutil.NewMockGateway()
	repo := NewRepository(gateway)

	ctx := context.Background()
	now := time.Now().UTC()
	old := &domain.StockSnapshot{TenantID: "T0001", StoreCode: "ST01", GenerateDateTime: now.AddDate(0, 0, -10)}
	require.NoError(t, repo.SaveSnapshot(ctx, old))

	// Under the original 30-day retention the snapshot is not yet expired.
	deleted, err := repo.DeleteExpiredSnapshots(ctx, now, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	snaps, err := repo.ListSnapshotsByDateRange(ctx, "ST01", now.AddDate(0, 0, -20), now.AddDate(0, 0, 20))
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	// Retention tightens to 7 days: the same, unmodified snapshot document
	// must now be eligible for expiry, since expiry is computed from the
	// schedule's current RetentionDays rather than a value frozen at
	// snapshot-creation time.
	deleted, err = repo.DeleteExpiredSnapshots(ctx, now, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	snaps, err = repo.ListSnapshotsByDateRange(ctx, "ST01", now.AddDate(0, 0, -20), now.AddDate(0, 0, 20))
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
