package service

import (
	"context"
	"testing"
	"time"

	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports/mocks"
	"merchant-backoffice/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type settingsTestDeps struct {
	svc  *SettingsRegistryImpl
	repo *mocks.MockSettingsRepository
	ctrl *gomock.Controller
}

func setupSettings(t *testing.T) *settingsTestDeps {
	ctrl := gomock.NewController(t)
	d := &settingsTestDeps{
		repo: mocks.NewMockSettingsRepository(ctrl),
		ctrl: ctrl,
	}
	d.svc = NewSettingsRegistry(d.repo, zerolog.Nop())
	return d
}

func TestSettingsRegistry_InitDefaults_SeedsAndWarmsCache(t *testing.T) {
	d := setupSettings(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	defaults := domain.DefaultSettings()

	d.repo.EXPECT().InsertIfAbsent(ctx, gomock.Any()).Return(nil).Times(len(defaults))
	d.repo.EXPECT().List(ctx).Return(defaults, nil)

	require.NoError(t, d.svc.InitDefaults(ctx))

	// Subsequent reads are served from cache without touching the repo.
	st, err := d.svc.Get(ctx, domain.SettingDefaultSpreadPercent)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "2.5", st.Value)
}

func TestSettingsRegistry_InitDefaults_PreservesExistingValues(t *testing.T) {
	d := setupSettings(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	persisted := domain.DefaultSettings()
	persisted[0].Value = "3.0" // operator already changed the spread

	d.repo.EXPECT().InsertIfAbsent(ctx, gomock.Any()).Return(nil).Times(len(persisted))
	d.repo.EXPECT().List(ctx).Return(persisted, nil)

	require.NoError(t, d.svc.InitDefaults(ctx))

	spread, err := d.svc.DefaultSpreadPercent(ctx)
	require.NoError(t, err)
	assert.True(t, spread.Equal(dec("3.0")))
}

func TestSettingsRegistry_Get_CacheMissReadsRepo(t *testing.T) {
	d := setupSettings(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	stored := &domain.Setting{
		Key:       domain.SettingReleaseCap,
		Value:     "5000.00",
		Type:      domain.SettingTypeNumber,
		UpdatedAt: time.Now().UTC(),
	}

	// Only the first miss hits the repo.
	d.repo.EXPECT().Get(ctx, domain.SettingReleaseCap).Return(stored, nil)

	st, err := d.svc.Get(ctx, domain.SettingReleaseCap)
	require.NoError(t, err)
	assert.Equal(t, "5000.00", st.Value)

	st, err = d.svc.Get(ctx, domain.SettingReleaseCap)
	require.NoError(t, err)
	assert.Equal(t, "5000.00", st.Value)
}

func TestSettingsRegistry_Set_RejectsUnknownKey(t *testing.T) {
	d := setupSettings(t)
	defer d.ctrl.Finish()

	err := d.svc.Set(context.Background(), "made.up.key", "1", "admin")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "CFG_001", appErr.Code)
}

func TestSettingsRegistry_Set_ValidatesSpreadBounds(t *testing.T) {
	d := setupSettings(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	for _, bad := range []string{"-0.1", "10.01", "abc"} {
		err := d.svc.Set(ctx, domain.SettingDefaultSpreadPercent, bad, "admin")
		require.Error(t, err, "value %q should be rejected", bad)
		appErr, ok := err.(*apperror.AppError)
		require.True(t, ok)
		assert.Equal(t, "ADM_002", appErr.Code)
	}

	d.repo.EXPECT().Update(ctx, domain.SettingDefaultSpreadPercent, "10", "admin").Return(true, nil)
	assert.NoError(t, d.svc.Set(ctx, domain.SettingDefaultSpreadPercent, "10", "admin"))

	d.repo.EXPECT().Update(ctx, domain.SettingDefaultSpreadPercent, "0", "admin").Return(true, nil)
	assert.NoError(t, d.svc.Set(ctx, domain.SettingDefaultSpreadPercent, "0", "admin"))
}

func TestSettingsRegistry_Set_UpdatesCache(t *testing.T) {
	d := setupSettings(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	defaults := domain.DefaultSettings()

	d.repo.EXPECT().InsertIfAbsent(ctx, gomock.Any()).Return(nil).Times(len(defaults))
	d.repo.EXPECT().List(ctx).Return(defaults, nil)
	require.NoError(t, d.svc.InitDefaults(ctx))

	d.repo.EXPECT().Update(ctx, domain.SettingReleaseCap, "7500.00", "admin").Return(true, nil)
	require.NoError(t, d.svc.Set(ctx, domain.SettingReleaseCap, "7500.00", "admin"))

	st, err := d.svc.Get(ctx, domain.SettingReleaseCap)
	require.NoError(t, err)
	assert.Equal(t, "7500.00", st.Value)
	assert.Equal(t, "admin", st.UpdatedBy)
}

func TestSettingsRegistry_AllowedCurrencies_NormalizesList(t *testing.T) {
	d := setupSettings(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.repo.EXPECT().Get(ctx, domain.SettingAllowedCurrencies).Return(&domain.Setting{
		Key:   domain.SettingAllowedCurrencies,
		Value: "usd, brl ,EUR,,gbp",
		Type:  domain.SettingTypeList,
	}, nil)

	currencies, err := d.svc.AllowedCurrencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"USD", "BRL", "EUR", "GBP"}, currencies)
}

func TestSettingsRegistry_AllowedCurrencies_EmptyMeansUnrestricted(t *testing.T) {
	d := setupSettings(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.repo.EXPECT().Get(ctx, domain.SettingAllowedCurrencies).Return(nil, nil)

	currencies, err := d.svc.AllowedCurrencies(ctx)
	require.NoError(t, err)
	assert.Nil(t, currencies)
}
