package handler

import (
	"time"

	"merchant-backoffice/internal/adapter/http/dto"
	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"
	"merchant-backoffice/pkg/apperror"
	"merchant-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// FxHandler handles rate lookup, rate snapshotting and conversion
// quote endpoints.
type FxHandler struct {
	rates     ports.RateStore
	converter ports.FxConverter
}

// NewFxHandler creates a new FxHandler.
func NewFxHandler(rates ports.RateStore, converter ports.FxConverter) *FxHandler {
	return &FxHandler{rates: rates, converter: converter}
}

// GetRate handles GET /api/v1/fx/rates/:base/:quote. An optional
// ?at=RFC3339 query switches to a historical lookup against the
// snapshot timeline.
func (h *FxHandler) GetRate(c *gin.Context) {
	base := domain.NormalizeCurrency(c.Param("base"))
	quote := domain.NormalizeCurrency(c.Param("quote"))
	if len(base) != 3 || len(quote) != 3 {
		response.Error(c, apperror.Validation("base and quote must be 3-letter currency codes"))
		return
	}

	var (
		rate decimal.Decimal
		asOf string
		err  error
	)
	if raw := c.Query("at"); raw != "" {
		at, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			response.Error(c, apperror.Validation("at must be an RFC3339 timestamp"))
			return
		}
		rate, err = h.rates.GetRateAtDate(c.Request.Context(), base, quote, at)
		asOf = at.UTC().Format(time.RFC3339)
	} else {
		rate, err = h.rates.GetCurrentRate(c.Request.Context(), base, quote)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RateResponse{
		Base:  base,
		Quote: quote,
		Rate:  rate.String(),
		AsOf:  asOf,
	})
}

// SnapshotRate handles POST /api/v1/fx/rates. It closes the pair's
// open snapshot and opens a new one at the given rate.
func (h *FxHandler) SnapshotRate(c *gin.Context) {
	var req dto.SnapshotRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		response.Error(c, apperror.Validation("rate must be a decimal string"))
		return
	}

	snapshot, err := h.rates.SnapshotRate(c.Request.Context(), req.Base, req.Quote, rate, domain.RateSourceManual)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.RateResponse{
		Base:  snapshot.BaseCurrency,
		Quote: snapshot.QuoteCurrency,
		Rate:  snapshot.Rate.String(),
		AsOf:  snapshot.EffectiveFrom.Format(time.RFC3339),
	})
}

// Convert handles POST /api/v1/fx/convert. It quotes a conversion
// without touching any balance.
func (h *FxHandler) Convert(c *gin.Context) {
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	var spread *decimal.Decimal
	if req.SpreadPercent != nil {
		parsed, err := decimal.NewFromString(*req.SpreadPercent)
		if err != nil {
			response.Error(c, apperror.Validation("spread_percent must be a decimal string"))
			return
		}
		spread = &parsed
	}

	conv, err := h.converter.Convert(c.Request.Context(), amount, req.From, req.To, spread)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ConversionResponse{
		From:            domain.NormalizeCurrency(req.From),
		To:              domain.NormalizeCurrency(req.To),
		Amount:          amount.String(),
		ConvertedAmount: conv.ConvertedAmount.StringFixed(2),
		EffectiveRate:   conv.EffectiveRate.String(),
	})
}
