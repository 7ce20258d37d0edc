package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateSource tags where a rate snapshot came from.
type RateSource string

const (
	RateSourceManual    RateSource = "manual"
	RateSourceRefresh   RateSource = "refresh"
	RateSourceBootstrap RateSource = "bootstrap"
)

// FxRateSnapshot is one entry in a pair's append-only rate timeline.
// EffectiveTo == nil marks the currently active snapshot; at most one
// snapshot per pair may be open at any time. Snapshots are never
// mutated after creation except to close their validity window.
type FxRateSnapshot struct {
	ID            uuid.UUID       `json:"id"`
	BaseCurrency  string          `json:"base_currency"`
	QuoteCurrency string          `json:"quote_currency"`
	Rate          decimal.Decimal `json:"rate"` // quote-per-base, full precision
	Source        RateSource      `json:"source"`
	FetchedAt     time.Time       `json:"fetched_at"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
}

// IsOpen reports whether this snapshot is the pair's active rate.
func (s *FxRateSnapshot) IsOpen() bool {
	return s.EffectiveTo == nil
}

// Covers reports whether the snapshot's [EffectiveFrom, EffectiveTo)
// window contains the given instant.
func (s *FxRateSnapshot) Covers(at time.Time) bool {
	if at.Before(s.EffectiveFrom) {
		return false
	}
	return s.EffectiveTo == nil || at.Before(*s.EffectiveTo)
}

// NormalizeCurrency upper-cases a three-letter currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizePair normalizes both sides of a currency pair.
func NormalizePair(base, quote string) (string, string) {
	return NormalizeCurrency(base), NormalizeCurrency(quote)
}
