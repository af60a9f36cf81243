package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStudentHandlerCreateRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStudentHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students", strings.NewReader("{broken"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerUpdateRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStudentHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/students/id1", strings.NewReader("[]"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Update(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
