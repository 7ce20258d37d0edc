package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"
	"merchant-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MerchantOnboardingImpl implements ports.MerchantOnboarding.
// Onboarding derives the currency profile from the merchant's country
// and encrypts the verification document at rest.
type MerchantOnboardingImpl struct {
	merchantRepo ports.MerchantRepository
	ledger       ports.BalanceLedger
	encSvc       ports.EncryptionService
	log          zerolog.Logger
}

// NewMerchantOnboarding creates a new MerchantOnboardingImpl.
func NewMerchantOnboarding(
	merchantRepo ports.MerchantRepository,
	ledger ports.BalanceLedger,
	encSvc ports.EncryptionService,
	log zerolog.Logger,
) *MerchantOnboardingImpl {
	return &MerchantOnboardingImpl{
		merchantRepo: merchantRepo,
		ledger:       ledger,
		encSvc:       encSvc,
		log:          log,
	}
}

// Onboard registers a merchant profile, deriving its currency
// configuration and creating its zeroed balance.
func (s *MerchantOnboardingImpl) Onboard(ctx context.Context, req ports.OnboardMerchantRequest) (*domain.Merchant, error) {
	legalName := strings.TrimSpace(req.LegalName)
	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if legalName == "" || len(country) != 2 {
		return nil, apperror.ErrInvalidMerchantProfile("legal_name and two-letter country are required")
	}

	profile := domain.DeriveCurrencyProfile(country, req.SellsInternationally)

	var docEnc *string
	if req.VerificationDoc != "" {
		enc, err := s.encSvc.Encrypt(req.VerificationDoc)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(err)
		}
		docEnc = &enc
	}

	now := time.Now().UTC()
	merchant := &domain.Merchant{
		ID:                   uuid.New(),
		LegalName:            legalName,
		Country:              country,
		Status:               domain.MerchantStatusActive,
		DashboardCurrency:    profile.DashboardCurrency,
		PayoutCurrency:       profile.PayoutCurrency,
		SellsInternationally: req.SellsInternationally,
		VerificationDocEnc:   docEnc,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.merchantRepo.Create(ctx, merchant); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create merchant: %w", err))
	}

	if _, err := s.ledger.EnsureExists(ctx, merchant.ID); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("merchant_id", merchant.ID.String()).
		Str("country", country).
		Str("dashboard_currency", profile.DashboardCurrency).
		Str("payout_currency", profile.PayoutCurrency).
		Msg("merchant onboarded")
	return merchant, nil
}

// Get returns the merchant profile.
func (s *MerchantOnboardingImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	return merchant, nil
}

// SetSpread updates the merchant's FX spread override. A nil spread
// clears the override so the global default applies again.
func (s *MerchantOnboardingImpl) SetSpread(ctx context.Context, id uuid.UUID, spreadPercent *decimal.Decimal) (*domain.Merchant, error) {
	if spreadPercent != nil {
		if spreadPercent.IsNegative() || spreadPercent.GreaterThan(decimal.NewFromInt(10)) {
			return nil, apperror.ErrInvalidSpread()
		}
	}

	merchant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merchant.FxSpreadPercent = spreadPercent
	merchant.UpdatedAt = time.Now().UTC()
	if err := s.merchantRepo.Update(ctx, merchant); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update merchant: %w", err))
	}
	return merchant, nil
}
