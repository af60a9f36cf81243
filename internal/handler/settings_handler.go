package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mess-fee-api/internal/service"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
	"github.com/noah-isme/mess-fee-api/pkg/response"
)

// SettingsHandler exposes the mess configuration endpoints.
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler constructs SettingsHandler.
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get godoc
// @Summary Get mess settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Update godoc
// @Summary Update mess settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body service.UpdateSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req service.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	settings, err := h.settings.Update(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
