package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MerchantStatus represents the state of a merchant account.
type MerchantStatus string

const (
	MerchantStatusActive      MerchantStatus = "ACTIVE"
	MerchantStatusSuspended   MerchantStatus = "SUSPENDED"
	MerchantStatusDeactivated MerchantStatus = "DEACTIVATED"
)

// Merchant is the slice of the externally-owned merchant entity this
// system consumes: identity, status and the currency profile driving
// FX conversion.
type Merchant struct {
	ID                   uuid.UUID        `json:"id"`
	LegalName            string           `json:"legal_name"`
	Country              string           `json:"country"` // ISO 3166-1 alpha-2
	Status               MerchantStatus   `json:"status"`
	DashboardCurrency    string           `json:"dashboard_currency"`
	PayoutCurrency       string           `json:"payout_currency"`
	FxSpreadPercent      *decimal.Decimal `json:"fx_spread_percent,omitempty"` // nil = global default
	SellsInternationally bool             `json:"sells_internationally"`
	VerificationDocEnc   *string          `json:"-"` // AES-256-GCM ciphertext, never exposed
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// IsActive returns true if the merchant account is active.
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}

// CurrencyProfile is the derived currency configuration for a merchant.
type CurrencyProfile struct {
	DashboardCurrency string `json:"dashboard_currency"`
	PayoutCurrency    string `json:"payout_currency"`
}

// DeriveCurrencyProfile maps a merchant's country and international
// sales flag to its currency profile. Brazilian merchants see their
// dashboard in BRL, everyone else in USD; merchants selling
// internationally are paid out in USD regardless of dashboard
// currency. Callers invoke this before persisting a merchant profile.
func DeriveCurrencyProfile(country string, sellsInternationally bool) CurrencyProfile {
	dashboard := "USD"
	if NormalizeCurrency(country) == "BR" {
		dashboard = "BRL"
	}
	payout := dashboard
	if sellsInternationally {
		payout = "USD"
	}
	return CurrencyProfile{
		DashboardCurrency: dashboard,
		PayoutCurrency:    payout,
	}
}
