package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/receiving/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bodyLimitRouter(limit int64) *gin.Engine {
	r := gin.New()
	r.Use(BodyLimit(limit))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestBodyLimit_DeclaredLengthTooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	bodyLimitRouter(10).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 20))))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
}

func TestBodyLimit_StreamedBodyCapped(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 20)))
	req.ContentLength = -1

	w := httptest.NewRecorder()
	bodyLimitRouter(10).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestBodyLimit_WithinLimit(t *testing.T) {
	w := httptest.NewRecorder()
	bodyLimitRouter(10).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodyLimit_Disabled(t *testing.T) {
	w := httptest.NewRecorder()
	bodyLimitRouter(0).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 100))))

	assert.Equal(t, http.StatusOK, w.Code)
}
