package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMerchant_IsActive(t *testing.T) {
	tests := []struct {
		name   string
		status MerchantStatus
		want   bool
	}{
		{"active", MerchantStatusActive, true},
		{"suspended", MerchantStatusSuspended, false},
		{"deactivated", MerchantStatusDeactivated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Merchant{Status: tt.status}
			assert.Equal(t, tt.want, m.IsActive())
		})
	}
}

func TestDeriveCurrencyProfile(t *testing.T) {
	tests := []struct {
		name          string
		country       string
		international bool
		wantDashboard string
		wantPayout    string
	}{
		{"brazil domestic", "BR", false, "BRL", "BRL"},
		{"brazil international", "BR", true, "BRL", "USD"},
		{"brazil lowercase", "br", false, "BRL", "BRL"},
		{"us merchant", "US", false, "USD", "USD"},
		{"other country international", "DE", true, "USD", "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DeriveCurrencyProfile(tt.country, tt.international)
			assert.Equal(t, tt.wantDashboard, p.DashboardCurrency)
			assert.Equal(t, tt.wantPayout, p.PayoutCurrency)
		})
	}
}

func TestBalance_TotalBalance(t *testing.T) {
	b := NewBalance(uuid.New(), "USD")
	b.Reserve = decimal.RequireFromString("10.50")
	b.Available = decimal.RequireFromString("4.25")
	b.Pending = decimal.RequireFromString("0.25")

	assert.True(t, b.TotalBalance().Equal(decimal.RequireFromString("15.00")))
}

func TestNewBalance_Zeroed(t *testing.T) {
	b := NewBalance(uuid.New(), "BRL")
	assert.Equal(t, "BRL", b.Currency)
	assert.True(t, b.Reserve.IsZero())
	assert.True(t, b.Available.IsZero())
	assert.True(t, b.Pending.IsZero())
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, "529.2", RoundMoney(decimal.RequireFromString("529.2")).String())
	assert.Equal(t, "529.2", RoundMoney(decimal.RequireFromString("529.204")).String())
	assert.Equal(t, "529.21", RoundMoney(decimal.RequireFromString("529.205")).String())
}

func TestClampNonNegative(t *testing.T) {
	assert.True(t, ClampNonNegative(decimal.RequireFromString("-3.50")).IsZero())
	assert.Equal(t, "3.5", ClampNonNegative(decimal.RequireFromString("3.5")).String())
}

func TestFxRateSnapshot_Covers(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	open := &FxRateSnapshot{EffectiveFrom: from}
	assert.True(t, open.IsOpen())
	assert.True(t, open.Covers(from))
	assert.True(t, open.Covers(from.Add(time.Hour)))
	assert.False(t, open.Covers(from.Add(-time.Second)))

	closed := &FxRateSnapshot{EffectiveFrom: from, EffectiveTo: &to}
	assert.False(t, closed.IsOpen())
	assert.True(t, closed.Covers(to.Add(-time.Second)))
	assert.False(t, closed.Covers(to))
}

func TestNormalizePair(t *testing.T) {
	base, quote := NormalizePair(" usd", "brl ")
	assert.Equal(t, "USD", base)
	assert.Equal(t, "BRL", quote)
}
