package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"merchant-backoffice/config"
	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type schedulerTestDeps struct {
	svc          *ReserveReleaseScheduler
	merchantRepo *mocks.MockMerchantRepository
	ledger       *mocks.MockBalanceLedger
	settings     *mocks.MockSettingsRegistry
	lock         *mocks.MockSweepLock
	ctrl         *gomock.Controller
}

func setupScheduler(t *testing.T) *schedulerTestDeps {
	ctrl := gomock.NewController(t)
	d := &schedulerTestDeps{
		merchantRepo: mocks.NewMockMerchantRepository(ctrl),
		ledger:       mocks.NewMockBalanceLedger(ctrl),
		settings:     mocks.NewMockSettingsRegistry(ctrl),
		lock:         mocks.NewMockSweepLock(ctrl),
		ctrl:         ctrl,
	}
	cfg := config.SchedulerConfig{Enabled: true, ReleaseTime: "03:00", LockTTL: 10 * time.Minute}
	d.svc = NewReserveReleaseScheduler(d.merchantRepo, d.ledger, d.settings, d.lock, cfg, zerolog.Nop())
	return d
}

func capSetting(value string) *domain.Setting {
	return &domain.Setting{
		Key:   domain.SettingReleaseCap,
		Value: value,
		Type:  domain.SettingTypeNumber,
	}
}

func TestScheduler_RunOnce_ReleasesUpToCap(t *testing.T) {
	d := setupScheduler(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	m1 := *testMerchant(uuid.New()) // reserve below cap
	m2 := *testMerchant(uuid.New()) // reserve above cap

	d.lock.EXPECT().Acquire(ctx, 10*time.Minute).Return(true, nil)
	d.lock.EXPECT().Release(ctx).Return(nil)
	d.settings.EXPECT().Get(ctx, domain.SettingReleaseCap).Return(capSetting("5000.00"), nil)
	d.merchantRepo.EXPECT().ListActive(ctx).Return([]domain.Merchant{m1, m2}, nil)

	d.ledger.EXPECT().Get(ctx, m1.ID).Return(testBalance(m1.ID, "1200.00", "0", "0"), nil)
	d.ledger.EXPECT().ReleaseReserve(ctx, m1.ID, decEq{dec("1200.00")}, "scheduled-release").
		Return(testBalance(m1.ID, "0", "1200.00", "0"), nil)

	d.ledger.EXPECT().Get(ctx, m2.ID).Return(testBalance(m2.ID, "9000.00", "0", "0"), nil)
	d.ledger.EXPECT().ReleaseReserve(ctx, m2.ID, decEq{dec("5000.00")}, "scheduled-release").
		Return(testBalance(m2.ID, "4000.00", "5000.00", "0"), nil)

	report := d.svc.RunOnce(ctx)
	assert.Equal(t, 2, report.MerchantsProcessed)
	assert.Equal(t, 0, report.MerchantsFailed)
	assert.True(t, report.TotalReleased.Equal(dec("6200.00")))
}

func TestScheduler_RunOnce_SkipsZeroReserve(t *testing.T) {
	d := setupScheduler(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	m := *testMerchant(uuid.New())

	d.lock.EXPECT().Acquire(ctx, gomock.Any()).Return(true, nil)
	d.lock.EXPECT().Release(ctx).Return(nil)
	d.settings.EXPECT().Get(ctx, domain.SettingReleaseCap).Return(capSetting("5000.00"), nil)
	d.merchantRepo.EXPECT().ListActive(ctx).Return([]domain.Merchant{m}, nil)
	d.ledger.EXPECT().Get(ctx, m.ID).Return(testBalance(m.ID, "0", "100.00", "0"), nil)

	report := d.svc.RunOnce(ctx)
	assert.Equal(t, 1, report.MerchantsProcessed)
	assert.True(t, report.TotalReleased.IsZero())
}

func TestScheduler_RunOnce_IsolatesMerchantFailures(t *testing.T) {
	d := setupScheduler(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	failing := *testMerchant(uuid.New())
	healthy := *testMerchant(uuid.New())

	d.lock.EXPECT().Acquire(ctx, gomock.Any()).Return(true, nil)
	d.lock.EXPECT().Release(ctx).Return(nil)
	d.settings.EXPECT().Get(ctx, domain.SettingReleaseCap).Return(capSetting("5000.00"), nil)
	d.merchantRepo.EXPECT().ListActive(ctx).Return([]domain.Merchant{failing, healthy}, nil)

	d.ledger.EXPECT().Get(ctx, failing.ID).Return(nil, fmt.Errorf("row deadlock"))
	d.ledger.EXPECT().Get(ctx, healthy.ID).Return(testBalance(healthy.ID, "300.00", "0", "0"), nil)
	d.ledger.EXPECT().ReleaseReserve(ctx, healthy.ID, decEq{dec("300.00")}, "scheduled-release").
		Return(testBalance(healthy.ID, "0", "300.00", "0"), nil)

	report := d.svc.RunOnce(ctx)
	assert.Equal(t, 1, report.MerchantsProcessed)
	assert.Equal(t, 1, report.MerchantsFailed)
	assert.True(t, report.TotalReleased.Equal(dec("300.00")))
}

func TestScheduler_RunOnce_SkipsWhenLockHeld(t *testing.T) {
	d := setupScheduler(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.lock.EXPECT().Acquire(ctx, gomock.Any()).Return(false, nil)

	report := d.svc.RunOnce(ctx)
	assert.Equal(t, 0, report.MerchantsProcessed)
	assert.True(t, report.TotalReleased.IsZero())
}

func TestScheduler_TriggerNow_RunsImmediately(t *testing.T) {
	d := setupScheduler(t)
	defer d.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.lock.EXPECT().Acquire(gomock.Any(), gomock.Any()).Return(true, nil)
	d.lock.EXPECT().Release(gomock.Any()).Return(nil)
	d.settings.EXPECT().Get(gomock.Any(), domain.SettingReleaseCap).Return(capSetting("5000.00"), nil)
	d.merchantRepo.EXPECT().ListActive(gomock.Any()).Return(nil, nil)

	go d.svc.Start(ctx)

	report, err := d.svc.TriggerNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.MerchantsProcessed)
}

func TestScheduler_TriggerNow_RunsInlineWhenDisabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchantRepo := mocks.NewMockMerchantRepository(ctrl)
	ledger := mocks.NewMockBalanceLedger(ctrl)
	settings := mocks.NewMockSettingsRegistry(ctrl)
	lock := mocks.NewMockSweepLock(ctrl)
	cfg := config.SchedulerConfig{Enabled: false, ReleaseTime: "03:00", LockTTL: 10 * time.Minute}
	svc := NewReserveReleaseScheduler(merchantRepo, ledger, settings, lock, cfg, zerolog.Nop())

	// The disabled loop exits at once and consumes no triggers; the
	// on-demand sweep must still complete well within the deadline.
	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()
	go svc.Start(loopCtx)

	m := *testMerchant(uuid.New())
	lock.EXPECT().Acquire(gomock.Any(), 10*time.Minute).Return(true, nil)
	lock.EXPECT().Release(gomock.Any()).Return(nil)
	settings.EXPECT().Get(gomock.Any(), domain.SettingReleaseCap).Return(capSetting("5000.00"), nil)
	merchantRepo.EXPECT().ListActive(gomock.Any()).Return([]domain.Merchant{m}, nil)
	ledger.EXPECT().Get(gomock.Any(), m.ID).Return(testBalance(m.ID, "300.00", "0.00", "0.00"), nil)
	ledger.EXPECT().ReleaseReserve(gomock.Any(), m.ID, decEq{dec("300.00")}, "scheduled-release").
		Return(testBalance(m.ID, "0.00", "300.00", "0.00"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	report, err := svc.TriggerNow(ctx)
	require.NoError(t, err)
	assert.NoError(t, ctx.Err(), "trigger must not wait out the request deadline")
	assert.Equal(t, 1, report.MerchantsProcessed)
	assert.Equal(t, "300.00", report.TotalReleased.StringFixed(2))
}

func TestScheduler_TriggerNow_RunsInlineWhenLoopNeverStarted(t *testing.T) {
	d := setupScheduler(t)
	defer d.ctrl.Finish()

	d.lock.EXPECT().Acquire(gomock.Any(), gomock.Any()).Return(true, nil)
	d.lock.EXPECT().Release(gomock.Any()).Return(nil)
	d.settings.EXPECT().Get(gomock.Any(), domain.SettingReleaseCap).Return(capSetting("5000.00"), nil)
	d.merchantRepo.EXPECT().ListActive(gomock.Any()).Return(nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	report, err := d.svc.TriggerNow(ctx)
	require.NoError(t, err)
	assert.NoError(t, ctx.Err())
	assert.Equal(t, 0, report.MerchantsProcessed)
}

func TestScheduler_UntilNextRun(t *testing.T) {
	d := setupScheduler(t)
	defer d.ctrl.Finish()

	// 01:00 UTC, next run at 03:00 same day.
	now := time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 2*time.Hour, d.svc.untilNextRun(now))

	// 04:00 UTC, next run at 03:00 the day after.
	now = time.Date(2026, 5, 1, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, 23*time.Hour, d.svc.untilNextRun(now))
}

func TestScheduler_ParseClock(t *testing.T) {
	h, m, err := parseClock("03:30")
	require.NoError(t, err)
	assert.Equal(t, 3, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"", "3", "25:00", "03:60", "ab:cd"} {
		_, _, err := parseClock(bad)
		assert.Error(t, err, "value %q should be rejected", bad)
	}
}
