package service

import (
	"context"
	"testing"

	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"
	"merchant-backoffice/internal/core/ports/mocks"
	"merchant-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type onboardingTestDeps struct {
	svc          *MerchantOnboardingImpl
	merchantRepo *mocks.MockMerchantRepository
	ledger       *mocks.MockBalanceLedger
	encSvc       *mocks.MockEncryptionService
	ctrl         *gomock.Controller
}

func setupOnboarding(t *testing.T) *onboardingTestDeps {
	ctrl := gomock.NewController(t)
	d := &onboardingTestDeps{
		merchantRepo: mocks.NewMockMerchantRepository(ctrl),
		ledger:       mocks.NewMockBalanceLedger(ctrl),
		encSvc:       mocks.NewMockEncryptionService(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewMerchantOnboarding(d.merchantRepo, d.ledger, d.encSvc, zerolog.Nop())
	return d
}

func TestMerchantOnboarding_Onboard_BrazilianMerchant(t *testing.T) {
	d := setupOnboarding(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.encSvc.EXPECT().Encrypt("12.345.678/0001-95").Return("enc:doc", nil)
	d.merchantRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().EnsureExists(ctx, gomock.Any()).Return(&domain.Balance{}, nil)

	merchant, err := d.svc.Onboard(ctx, ports.OnboardMerchantRequest{
		LegalName:            "Loja Brasil Ltda",
		Country:              "br",
		SellsInternationally: true,
		VerificationDoc:      "12.345.678/0001-95",
	})
	require.NoError(t, err)
	assert.Equal(t, "BRL", merchant.DashboardCurrency)
	assert.Equal(t, "USD", merchant.PayoutCurrency, "international sellers are paid out in USD")
	assert.Equal(t, "BR", merchant.Country)
	require.NotNil(t, merchant.VerificationDocEnc)
	assert.Equal(t, "enc:doc", *merchant.VerificationDocEnc)
	assert.Equal(t, domain.MerchantStatusActive, merchant.Status)
}

func TestMerchantOnboarding_Onboard_DomesticBrazilian(t *testing.T) {
	d := setupOnboarding(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.merchantRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().EnsureExists(ctx, gomock.Any()).Return(&domain.Balance{}, nil)

	merchant, err := d.svc.Onboard(ctx, ports.OnboardMerchantRequest{
		LegalName: "Padaria Local",
		Country:   "BR",
	})
	require.NoError(t, err)
	assert.Equal(t, "BRL", merchant.DashboardCurrency)
	assert.Equal(t, "BRL", merchant.PayoutCurrency)
	assert.Nil(t, merchant.VerificationDocEnc)
}

func TestMerchantOnboarding_Onboard_RejectsInvalidProfile(t *testing.T) {
	d := setupOnboarding(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Onboard(context.Background(), ports.OnboardMerchantRequest{
		LegalName: "",
		Country:   "US",
	})
	require.Error(t, err)

	_, err = d.svc.Onboard(context.Background(), ports.OnboardMerchantRequest{
		LegalName: "Acme",
		Country:   "USA",
	})
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "MER_001", appErr.Code)
}

func TestMerchantOnboarding_SetSpread_Bounds(t *testing.T) {
	d := setupOnboarding(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	tooHigh := dec("10.01")
	_, err := d.svc.SetSpread(ctx, id, &tooHigh)
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "ADM_002", appErr.Code)

	negative := dec("-1")
	_, err = d.svc.SetSpread(ctx, id, &negative)
	require.Error(t, err)
}

func TestMerchantOnboarding_SetSpread_UpdatesAndClears(t *testing.T) {
	d := setupOnboarding(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	merchant := testMerchant(uuid.New())
	spread := dec("1.5")

	d.merchantRepo.EXPECT().GetByID(ctx, merchant.ID).Return(merchant, nil)
	d.merchantRepo.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	updated, err := d.svc.SetSpread(ctx, merchant.ID, &spread)
	require.NoError(t, err)
	require.NotNil(t, updated.FxSpreadPercent)
	assert.True(t, updated.FxSpreadPercent.Equal(dec("1.5")))

	d.merchantRepo.EXPECT().GetByID(ctx, merchant.ID).Return(merchant, nil)
	d.merchantRepo.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	updated, err = d.svc.SetSpread(ctx, merchant.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.FxSpreadPercent)
}
