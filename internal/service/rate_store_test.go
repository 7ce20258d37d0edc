package service

import (
	"context"
	"testing"
	"time"

	"merchant-backoffice/config"
	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports/mocks"
	"merchant-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type rateStoreTestDeps struct {
	svc        *RateStoreImpl
	rateRepo   *mocks.MockRateRepository
	cache      *mocks.MockRateCache
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupRateStore(t *testing.T, cfg config.FxConfig) *rateStoreTestDeps {
	ctrl := gomock.NewController(t)
	d := &rateStoreTestDeps{
		rateRepo:   mocks.NewMockRateRepository(ctrl),
		cache:      mocks.NewMockRateCache(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	svc, err := NewRateStore(d.rateRepo, d.transactor, d.cache, cfg, zerolog.Nop())
	require.NoError(t, err)
	d.svc = svc
	return d
}

func openSnapshot(base, quote, rate string) *domain.FxRateSnapshot {
	now := time.Now().UTC()
	return &domain.FxRateSnapshot{
		ID:            uuid.New(),
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Rate:          dec(rate),
		Source:        domain.RateSourceManual,
		FetchedAt:     now,
		EffectiveFrom: now,
	}
}

func TestRateStore_NewRejectsBadBootstrapRate(t *testing.T) {
	_, err := NewRateStore(nil, nil, nil, config.FxConfig{BootstrapRate: "abc"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewRateStore(nil, nil, nil, config.FxConfig{BootstrapRate: "-1"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestRateStore_GetCurrentRate_SameCurrency(t *testing.T) {
	d := setupRateStore(t, config.FxConfig{})
	defer d.ctrl.Finish()

	rate, err := d.svc.GetCurrentRate(context.Background(), "USD", "usd")
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("1")))
}

func TestRateStore_GetCurrentRate_CacheHitSkipsStore(t *testing.T) {
	d := setupRateStore(t, config.FxConfig{RateCacheTTL: time.Minute})
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.cache.EXPECT().Get(ctx, "USD", "BRL").Return(dec("5.10"), true, nil)

	rate, err := d.svc.GetCurrentRate(ctx, "USD", "BRL")
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("5.10")))
}

func TestRateStore_GetCurrentRate_CacheMissReadsAndWrites(t *testing.T) {
	d := setupRateStore(t, config.FxConfig{RateCacheTTL: time.Minute})
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.cache.EXPECT().Get(ctx, "USD", "BRL").Return(decimal.Zero, false, nil)
	d.rateRepo.EXPECT().GetOpen(ctx, "USD", "BRL").Return(openSnapshot("USD", "BRL", "5.20"), nil)
	d.cache.EXPECT().Set(ctx, "USD", "BRL", decEq{dec("5.20")}, time.Minute).Return(nil)

	rate, err := d.svc.GetCurrentRate(ctx, "USD", "BRL")
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("5.20")))
}

func TestRateStore_GetCurrentRate_BootstrapFallbackConfiguredPairOnly(t *testing.T) {
	cfg := config.FxConfig{
		BootstrapBase:  "USD",
		BootstrapQuote: "BRL",
		BootstrapRate:  "5.00",
	}
	d := setupRateStore(t, cfg)
	defer d.ctrl.Finish()

	ctx := context.Background()

	// Configured pair: served from the bootstrap rate.
	d.cache.EXPECT().Get(ctx, "USD", "BRL").Return(decimal.Zero, false, nil)
	d.rateRepo.EXPECT().GetOpen(ctx, "USD", "BRL").Return(nil, nil)

	rate, err := d.svc.GetCurrentRate(ctx, "USD", "BRL")
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("5.00")))

	// Any other pair: hard failure.
	d.cache.EXPECT().Get(ctx, "EUR", "BRL").Return(decimal.Zero, false, nil)
	d.rateRepo.EXPECT().GetOpen(ctx, "EUR", "BRL").Return(nil, nil)

	_, err = d.svc.GetCurrentRate(ctx, "EUR", "BRL")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "FX_001", appErr.Code)
}

func TestRateStore_GetRateAtDate(t *testing.T) {
	d := setupRateStore(t, config.FxConfig{})
	defer d.ctrl.Finish()

	ctx := context.Background()
	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	d.rateRepo.EXPECT().GetAt(ctx, "USD", "BRL", at).Return(openSnapshot("USD", "BRL", "4.90"), nil)

	rate, err := d.svc.GetRateAtDate(ctx, "USD", "BRL", at)
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("4.90")))
}

func TestRateStore_GetRateAtDate_NoWindow(t *testing.T) {
	d := setupRateStore(t, config.FxConfig{})
	defer d.ctrl.Finish()

	ctx := context.Background()
	at := time.Now().UTC()

	d.rateRepo.EXPECT().GetAt(ctx, "USD", "GBP", at).Return(nil, nil)

	_, err := d.svc.GetRateAtDate(ctx, "USD", "GBP", at)
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "FX_001", appErr.Code)
}

func TestRateStore_SnapshotRate_ClosesOpenAndInserts(t *testing.T) {
	d := setupRateStore(t, config.FxConfig{})
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	open := openSnapshot("USD", "BRL", "5.00")

	gomock.InOrder(
		d.transactor.EXPECT().Begin(ctx).Return(tx, nil),
		d.rateRepo.EXPECT().GetOpenForUpdate(ctx, tx, "USD", "BRL").Return(open, nil),
		d.rateRepo.EXPECT().Close(ctx, tx, open.ID, gomock.Any()).Return(nil),
		d.rateRepo.EXPECT().Insert(ctx, tx, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ pgx.Tx, snap *domain.FxRateSnapshot) error {
				assert.True(t, snap.Rate.Equal(dec("5.25")))
				assert.Equal(t, domain.RateSourceRefresh, snap.Source)
				assert.Nil(t, snap.EffectiveTo)
				return nil
			}),
		d.cache.EXPECT().Invalidate(ctx, "USD", "BRL").Return(nil),
	)

	snap, err := d.svc.SnapshotRate(ctx, "usd", "brl", dec("5.25"), domain.RateSourceRefresh)
	require.NoError(t, err)
	assert.Equal(t, "USD", snap.BaseCurrency)
	assert.Equal(t, "BRL", snap.QuoteCurrency)
	assert.Equal(t, snap.FetchedAt, snap.EffectiveFrom)
}

func TestRateStore_SnapshotRate_FirstSnapshotForPair(t *testing.T) {
	d := setupRateStore(t, config.FxConfig{})
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.rateRepo.EXPECT().GetOpenForUpdate(ctx, tx, "EUR", "USD").Return(nil, nil)
	d.rateRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)
	d.cache.EXPECT().Invalidate(ctx, "EUR", "USD").Return(nil)

	_, err := d.svc.SnapshotRate(ctx, "EUR", "USD", dec("1.09"), domain.RateSourceManual)
	require.NoError(t, err)
}

func TestRateStore_SnapshotRate_RejectsNonPositive(t *testing.T) {
	d := setupRateStore(t, config.FxConfig{})
	defer d.ctrl.Finish()

	_, err := d.svc.SnapshotRate(context.Background(), "USD", "BRL", decimal.Zero, domain.RateSourceManual)
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "LED_003", appErr.Code)
}
