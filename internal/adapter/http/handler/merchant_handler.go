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

// MerchantHandler handles merchant profile endpoints.
type MerchantHandler struct {
	onboarding ports.MerchantOnboarding
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(onboarding ports.MerchantOnboarding) *MerchantHandler {
	return &MerchantHandler{onboarding: onboarding}
}

// Onboard handles POST /api/v1/merchants.
func (h *MerchantHandler) Onboard(c *gin.Context) {
	var req dto.OnboardMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	merchant, err := h.onboarding.Onboard(c.Request.Context(), ports.OnboardMerchantRequest{
		LegalName:            req.LegalName,
		Country:              req.Country,
		SellsInternationally: req.SellsInternationally,
		VerificationDoc:      req.VerificationDoc,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toMerchantResponse(merchant))
}

// GetMerchant handles GET /api/v1/merchants/:id.
func (h *MerchantHandler) GetMerchant(c *gin.Context) {
	merchantID, err := parseMerchantID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	merchant, err := h.onboarding.Get(c.Request.Context(), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toMerchantResponse(merchant))
}

// SetSpread handles PUT /api/v1/merchants/:id/spread. A null
// spread_percent clears the per-merchant override.
func (h *MerchantHandler) SetSpread(c *gin.Context) {
	merchantID, err := parseMerchantID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.SetSpreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
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

	merchant, err := h.onboarding.SetSpread(c.Request.Context(), merchantID, spread)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toMerchantResponse(merchant))
}

func toMerchantResponse(m *domain.Merchant) dto.MerchantResponse {
	return dto.MerchantResponse{
		ID:                   m.ID.String(),
		LegalName:            m.LegalName,
		Country:              m.Country,
		Status:               string(m.Status),
		DashboardCurrency:    m.DashboardCurrency,
		PayoutCurrency:       m.PayoutCurrency,
		FxSpreadPercent:      decimalString(m.FxSpreadPercent),
		SellsInternationally: m.SellsInternationally,
		CreatedAt:            m.CreatedAt.Format(time.RFC3339),
	}
}
