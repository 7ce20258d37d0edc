package handler

import (
	"strconv"
	"time"

	"merchant-backoffice/internal/adapter/http/dto"
	"merchant-backoffice/internal/adapter/http/middleware"
	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"
	"merchant-backoffice/pkg/apperror"
	"merchant-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceHandler handles balance ledger endpoints.
type BalanceHandler struct {
	ledger  ports.BalanceLedger
	adjRepo ports.AdjustmentRepository
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(ledger ports.BalanceLedger, adjRepo ports.AdjustmentRepository) *BalanceHandler {
	return &BalanceHandler{ledger: ledger, adjRepo: adjRepo}
}

// GetBalance handles GET /api/v1/merchants/:id/balance.
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	merchantID, err := parseMerchantID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	balance, err := h.ledger.Get(c.Request.Context(), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(balance))
}

// CreditReserve handles POST /api/v1/merchants/:id/balance/credit.
func (h *BalanceHandler) CreditReserve(c *gin.Context) {
	merchantID, err := parseMerchantID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreditReserveRequest
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

	balance, err := h.ledger.CreditReserve(c.Request.Context(), merchantID, amount, req.Currency, req.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(balance))
}

// ReleaseReserve handles POST /api/v1/merchants/:id/balance/release.
func (h *BalanceHandler) ReleaseReserve(c *gin.Context) {
	merchantID, err := parseMerchantID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ReleaseReserveRequest
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

	balance, err := h.ledger.ReleaseReserve(c.Request.Context(), merchantID, amount, req.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(balance))
}

// DebitAvailable handles POST /api/v1/merchants/:id/balance/debit.
func (h *BalanceHandler) DebitAvailable(c *gin.Context) {
	merchantID, err := parseMerchantID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.DebitAvailableRequest
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

	balance, err := h.ledger.DebitAvailable(c.Request.Context(), merchantID, amount, req.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(balance))
}

// Refund handles POST /api/v1/merchants/:id/balance/refund.
func (h *BalanceHandler) Refund(c *gin.Context) {
	merchantID, err := parseMerchantID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.RefundRequest
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

	balance, err := h.ledger.Refund(c.Request.Context(), merchantID, amount, req.Currency, req.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(balance))
}

// Adjust handles POST /api/v1/merchants/:id/balance/adjust.
func (h *BalanceHandler) Adjust(c *gin.Context) {
	merchantID, err := parseMerchantID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	deltas, err := toAdjustmentDeltas(req)
	if err != nil {
		response.Error(c, err)
		return
	}

	balance, err := h.ledger.AdminAdjust(c.Request.Context(), merchantID, deltas, req.Reason, middleware.AdminID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(balance))
}

// ListAdjustments handles GET /api/v1/merchants/:id/adjustments.
func (h *BalanceHandler) ListAdjustments(c *gin.Context) {
	merchantID, err := parseMerchantID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			response.Error(c, apperror.Validation("limit must be an integer between 1 and 500"))
			return
		}
		limit = parsed
	}

	adjustments, err := h.adjRepo.ListByMerchant(c.Request.Context(), merchantID, limit)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	items := make([]dto.AdjustmentResponse, 0, len(adjustments))
	for i := range adjustments {
		items = append(items, toAdjustmentResponse(&adjustments[i]))
	}
	response.OK(c, items)
}

// ---- helpers shared by handlers ----

func parseMerchantID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid merchant id")
	}
	return id, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.Validation("amount must be a decimal string")
	}
	return amount, nil
}

func toBalanceResponse(b *domain.Balance) dto.BalanceResponse {
	return dto.BalanceResponse{
		MerchantID: b.MerchantID.String(),
		Currency:   b.Currency,
		Reserve:    b.Reserve.StringFixed(2),
		Available:  b.Available.StringFixed(2),
		Pending:    b.Pending.StringFixed(2),
		Total:      b.TotalBalance().StringFixed(2),
	}
}

func toAdjustmentDeltas(req dto.AdjustBalanceRequest) (ports.AdjustmentDeltas, error) {
	var deltas ports.AdjustmentDeltas
	var err error
	if deltas.Reserve, err = parseOptionalDelta(req.ReserveDelta); err != nil {
		return deltas, err
	}
	if deltas.Available, err = parseOptionalDelta(req.AvailableDelta); err != nil {
		return deltas, err
	}
	if deltas.Pending, err = parseOptionalDelta(req.PendingDelta); err != nil {
		return deltas, err
	}
	return deltas, nil
}

func parseOptionalDelta(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, apperror.Validation("delta must be a decimal string")
	}
	return &d, nil
}

func toAdjustmentResponse(adj *domain.BalanceAdjustment) dto.AdjustmentResponse {
	return dto.AdjustmentResponse{
		ID:              adj.ID.String(),
		MerchantID:      adj.MerchantID.String(),
		ReserveDelta:    decimalString(adj.ReserveDelta),
		AvailableDelta:  decimalString(adj.AvailableDelta),
		PendingDelta:    decimalString(adj.PendingDelta),
		Reason:          adj.Reason,
		AdjustedBy:      adj.AdjustedBy,
		Reference:       adj.Reference,
		NegativeBalance: adj.NegativeBalance,
		CreatedAt:       adj.CreatedAt.Format(time.RFC3339),
	}
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
