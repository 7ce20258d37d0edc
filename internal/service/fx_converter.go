package service

import (
	"context"

	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// FxConverterImpl implements ports.FxConverter. The spread is a
// multiplicative discount on the raw market rate, so the conversion
// margin lands in the platform's favor in either direction.
type FxConverterImpl struct {
	rates    ports.RateStore
	settings ports.SettingsRegistry
	log      zerolog.Logger
}

// NewFxConverter creates a new FxConverterImpl.
func NewFxConverter(rates ports.RateStore, settings ports.SettingsRegistry, log zerolog.Logger) *FxConverterImpl {
	return &FxConverterImpl{
		rates:    rates,
		settings: settings,
		log:      log,
	}
}

// EffectiveRate fetches the current base rate and applies the spread:
// effectiveRate = baseRate * (1 - spread/100). A nil spread falls
// back to the registry's global default. Spread bounds are enforced
// where spreads are configured, not here.
func (c *FxConverterImpl) EffectiveRate(ctx context.Context, base, quote string, spreadPercent *decimal.Decimal) (decimal.Decimal, error) {
	spread, err := c.resolveSpread(ctx, spreadPercent)
	if err != nil {
		return decimal.Zero, err
	}

	baseRate, err := c.rates.GetCurrentRate(ctx, base, quote)
	if err != nil {
		// RateNotFound propagates unchanged; substituting another
		// pair's rate is never acceptable.
		return decimal.Zero, err
	}

	return baseRate.Mul(one.Sub(spread.Div(hundred))), nil
}

// Convert turns an amount in one currency into another. Same-currency
// requests return the amount unchanged at rate 1 without touching the
// rate store; only the converted amount is rounded, never the rate.
func (c *FxConverterImpl) Convert(ctx context.Context, amount decimal.Decimal, from, to string, spreadPercent *decimal.Decimal) (*ports.Conversion, error) {
	from, to = domain.NormalizePair(from, to)
	if from == to {
		return &ports.Conversion{
			ConvertedAmount: amount,
			EffectiveRate:   one,
		}, nil
	}

	rate, err := c.EffectiveRate(ctx, from, to, spreadPercent)
	if err != nil {
		return nil, err
	}

	return &ports.Conversion{
		ConvertedAmount: domain.RoundMoney(amount.Mul(rate)),
		EffectiveRate:   rate,
	}, nil
}

func (c *FxConverterImpl) resolveSpread(ctx context.Context, spreadPercent *decimal.Decimal) (decimal.Decimal, error) {
	if spreadPercent != nil {
		return *spreadPercent, nil
	}
	return c.settings.DefaultSpreadPercent(ctx)
}
