package utils

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDAndContextLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	router := gin.New()
	router.Use(RequestID(), ContextLogger(logger))
	router.GET("/ping", func(c *gin.Context) {
		GetLoggerFromContext(c, logger).Info("pong")
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("mints an id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Body.String())
		assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))
	})

	t.Run("reuses caller id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "req-42", w.Body.String())
		assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	})
}

func TestLogRequestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	logger.LogRequest(http.MethodGet, "/x", 503, "1ms")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)

	buf.Reset()
	logger.LogRequest(http.MethodGet, "/x", 404, "1ms")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}
