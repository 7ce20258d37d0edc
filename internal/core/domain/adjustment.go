package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceAdjustment records one out-of-band bucket mutation: an admin
// override, or a refund that clamped a bucket to zero. Rows are
// append-only and exist for reconciliation tooling.
type BalanceAdjustment struct {
	ID              uuid.UUID        `json:"id"`
	MerchantID      uuid.UUID        `json:"merchant_id"`
	ReserveDelta    *decimal.Decimal `json:"reserve_delta,omitempty"`
	AvailableDelta  *decimal.Decimal `json:"available_delta,omitempty"`
	PendingDelta    *decimal.Decimal `json:"pending_delta,omitempty"`
	Reason          string           `json:"reason"`
	AdjustedBy      string           `json:"adjusted_by"` // admin ID, or "system"
	Reference       string           `json:"reference,omitempty"`
	NegativeBalance bool             `json:"negative_balance"` // refund shortfall was clamped
	CreatedAt       time.Time        `json:"created_at"`
}
