package handler

import (
	"context"
	"time"

	"merchant-backoffice/internal/adapter/http/dto"
	"merchant-backoffice/internal/adapter/http/middleware"
	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"
	"merchant-backoffice/pkg/apperror"
	"merchant-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// SweepTrigger runs an on-demand reserve-release sweep.
type SweepTrigger interface {
	TriggerNow(ctx context.Context) (ports.SweepReport, error)
}

// AdminHandler handles the settings registry and on-demand sweep
// endpoints of the back-office console.
type AdminHandler struct {
	settings ports.SettingsRegistry
	sweeper  SweepTrigger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(settings ports.SettingsRegistry, sweeper SweepTrigger) *AdminHandler {
	return &AdminHandler{settings: settings, sweeper: sweeper}
}

// ListSettings handles GET /api/v1/admin/settings.
func (h *AdminHandler) ListSettings(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.SettingResponse, 0, len(settings))
	for i := range settings {
		items = append(items, toSettingResponse(&settings[i]))
	}
	response.OK(c, items)
}

// GetSetting handles GET /api/v1/admin/settings/:key.
func (h *AdminHandler) GetSetting(c *gin.Context) {
	setting, err := h.settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if setting == nil {
		response.Error(c, apperror.ErrUnknownSetting(c.Param("key")))
		return
	}

	response.OK(c, toSettingResponse(setting))
}

// UpdateSetting handles PUT /api/v1/admin/settings/:key.
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	key := c.Param("key")
	if err := h.settings.Set(c.Request.Context(), key, req.Value, middleware.AdminID(c)); err != nil {
		response.Error(c, err)
		return
	}

	setting, err := h.settings.Get(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toSettingResponse(setting))
}

// TriggerSweep handles POST /api/v1/admin/sweeps. It runs one
// reserve-release sweep synchronously and returns its report.
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	report, err := h.sweeper.TriggerNow(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.SweepReportResponse{
		MerchantsProcessed: report.MerchantsProcessed,
		MerchantsFailed:    report.MerchantsFailed,
		TotalReleased:      report.TotalReleased.StringFixed(2),
		StartedAt:          report.StartedAt.Format(time.RFC3339),
		FinishedAt:         report.FinishedAt.Format(time.RFC3339),
	})
}

func toSettingResponse(s *domain.Setting) dto.SettingResponse {
	return dto.SettingResponse{
		Key:         s.Key,
		Value:       s.Value,
		Type:        string(s.Type),
		Description: s.Description,
		UpdatedBy:   s.UpdatedBy,
		UpdatedAt:   s.UpdatedAt.Format(time.RFC3339),
	}
}
