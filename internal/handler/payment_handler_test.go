package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
)

func TestPaymentHandlerListRejectsBadMonth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaymentHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/payments?month=March-2024", nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, appErrors.ErrInvalidDate.Code, envelope.Error["code"])
}

func TestPaymentHandlerSummaryRejectsBadMonth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaymentHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/payments/summary?month=2024-3", nil)

	handler.Summary(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentHandlerRecordRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaymentHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Record(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
