package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mess-fee-api/internal/service"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
	"github.com/noah-isme/mess-fee-api/pkg/response"
)

// ReportHandler exposes ledger export endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GenerateLedger godoc
// @Summary Generate payment ledger
// @Description Export the month's payments as CSV or PDF and return a signed download link
// @Tags Reports
// @Produce json
// @Param month query string true "Month (YYYY-MM)"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/ledger [post]
func (h *ReportHandler) GenerateLedger(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("month"))
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month is required"))
		return
	}
	month, err := time.Parse(monthLayout, raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidDate, "month must be YYYY-MM"))
		return
	}
	format := c.DefaultQuery("format", "csv")

	report, err := h.reports.GenerateLedger(c.Request.Context(), month, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Download godoc
// @Summary Download generated report
// @Description Stream a previously generated report using its signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	data, fileName, err := h.reports.OpenDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	if strings.HasSuffix(fileName, ".pdf") {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, contentType, data)
}
