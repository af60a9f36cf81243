package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mess-fee-api/internal/dto"
	"github.com/noah-isme/mess-fee-api/internal/middleware"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
	"github.com/noah-isme/mess-fee-api/pkg/response"
)

type dashboardService interface {
	Overview(ctx context.Context) (*dto.DashboardOverview, bool, error)
}

// DashboardHandler wires the dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Overview godoc
// @Summary Admin dashboard overview
// @Description Student counts per status, this month's collections and the oldest overdue fees
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	overview, cacheHit, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, overview, nil, meta)
}
