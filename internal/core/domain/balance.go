package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance holds a merchant's funds split across three buckets, all
// denominated in the merchant's dashboard currency. Buckets never go
// negative; every mutation re-rounds them to 2 decimal places.
type Balance struct {
	ID         uuid.UUID       `json:"id"`
	MerchantID uuid.UUID       `json:"merchant_id"`
	Currency   string          `json:"currency"` // dashboard currency, fixed at creation
	Reserve    decimal.Decimal `json:"reserve"`
	Available  decimal.Decimal `json:"available"`
	Pending    decimal.Decimal `json:"pending"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TotalBalance is derived, never stored.
func (b *Balance) TotalBalance() decimal.Decimal {
	return b.Reserve.Add(b.Available).Add(b.Pending)
}

// NewBalance creates a zeroed balance for a merchant in the given
// dashboard currency.
func NewBalance(merchantID uuid.UUID, currency string) *Balance {
	now := time.Now().UTC()
	return &Balance{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Currency:   currency,
		Reserve:    decimal.Zero,
		Available:  decimal.Zero,
		Pending:    decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// RoundMoney rounds a monetary amount to 2 decimal places. Rates are
// kept at full precision; only amounts pass through here.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ClampNonNegative returns the amount, or zero if it is negative.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
