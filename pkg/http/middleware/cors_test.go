package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func serveCORS(cfg CORSConfig, method, origin string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(CORS(cfg))
	e.POST("/api/batch", func(c echo.Context) error {
		c.Response().Header().Set("X-Batch-Rows", "1")
		return c.String(http.StatusOK, "ok")
	})
	req := httptest.NewRequest(method, "/api/batch", nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	cfg := CORSConfig{
		AllowOrigins:  []string{"https://desk.example"},
		AllowMethods:  []string{http.MethodPost},
		AllowHeaders:  []string{echo.HeaderContentType},
		ExposeHeaders: []string{"X-Batch-Rows"},
		MaxAge:        600,
	}

	t.Run("preflight from allowed origin", func(t *testing.T) {
		rec := serveCORS(cfg, http.MethodOptions, "https://desk.example")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://desk.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
		assert.Equal(t, "POST", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
		assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))
	})

	t.Run("simple request exposes headers", func(t *testing.T) {
		rec := serveCORS(cfg, http.MethodPost, "https://desk.example")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "X-Batch-Rows", rec.Header().Get(echo.HeaderAccessControlExposeHeaders))
		assert.Equal(t, echo.HeaderOrigin, rec.Header().Get(echo.HeaderVary))
	})

	t.Run("foreign origin gets no headers", func(t *testing.T) {
		rec := serveCORS(cfg, http.MethodPost, "https://elsewhere.example")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})

	t.Run("wildcard without origin", func(t *testing.T) {
		rec := serveCORS(CORSConfig{AllowOrigins: []string{"*"}}, http.MethodPost, "")
		assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})
}
