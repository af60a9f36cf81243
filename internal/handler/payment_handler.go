package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mess-fee-api/internal/models"
	"github.com/noah-isme/mess-fee-api/internal/service"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
	"github.com/noah-isme/mess-fee-api/pkg/response"
)

const monthLayout = "2006-01"

// PaymentHandler exposes payment endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Preview godoc
// @Summary Preview payable amount
// @Description Show the prorated amount a student owes for the current cycle
// @Tags Payments
// @Produce json
// @Param id path string true "Student ID"
// @Param absentDays query int false "Override the stored absent day count"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/payable [get]
func (h *PaymentHandler) Preview(c *gin.Context) {
	var absentDays *int
	if raw := c.Query("absentDays"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "absentDays must be an integer"))
			return
		}
		absentDays = &parsed
	}

	preview, err := h.payments.Preview(c.Request.Context(), c.Param("id"), absentDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Record godoc
// @Summary Record payment
// @Description Settle the student's current cycle and advance the due date
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	payment, err := h.payments.Record(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// List godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param month query string false "Filter by month (YYYY-MM)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var filter models.PaymentFilter
	filter.StudentID = c.Query("studentId")
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		month, err := time.Parse(monthLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidDate, "month must be YYYY-MM"))
			return
		}
		filter.Month = &month
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	payments, pagination, err := h.payments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// Summary godoc
// @Summary Monthly collection summary
// @Tags Payments
// @Produce json
// @Param month query string false "Month (YYYY-MM). Defaults to the current month"
// @Success 200 {object} response.Envelope
// @Router /payments/summary [get]
func (h *PaymentHandler) Summary(c *gin.Context) {
	var month time.Time
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		parsed, err := time.Parse(monthLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidDate, "month must be YYYY-MM"))
			return
		}
		month = parsed
	}

	summary, err := h.payments.Summary(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
