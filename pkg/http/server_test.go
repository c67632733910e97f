package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeRequest struct {
	Name  string  `json:"name" validate:"required"`
	Ratio float64 `json:"ratio" default:"1" validate:"gt=0"`
	Kind  string  `json:"kind" validate:"omitempty,oneof=call put"`
}

type probeHandler struct{}

func (probeHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/probe", func(c echo.Context) error {
		req := &probeRequest{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/gone", func(c echo.Context) error {
		return AppErrorResponse(c, UnprocessableError("ERR_NO_ANSWER", "no answer"))
	})
	e.GET("/boom", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("plain"))
	})
	e.GET("/panic", func(c echo.Context) error {
		panic("handler exploded")
	})
}

func newProbeServer() *Server {
	return NewServer([]Handler{probeHandler{}}, WithMetricsPath(""))
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var env APIResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestReadAndValidateRequest_DefaultsAndSuccess(t *testing.T) {
	rec, env := do(t, newProbeServer(), http.MethodPost, "/probe", `{"name":"x"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Status)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, 1.0, data["ratio"])
}

func TestReadAndValidateRequest_ValidationErrorsUseJSONNames(t *testing.T) {
	rec, env := do(t, newProbeServer(), http.MethodPost, "/probe", `{"kind":"straddle"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	errs := env.Data.([]interface{})
	require.Len(t, errs, 2)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "name", first["field"])
	assert.Equal(t, "ERR_REQUIRED", first["code"])
	second := errs[1].(map[string]interface{})
	assert.Equal(t, "ERR_ONEOF", second["code"])
	assert.Equal(t, "kind must be one of: call, put", second["message"])
}

func TestReadAndValidateRequest_MalformedBody(t *testing.T) {
	rec, _ := do(t, newProbeServer(), http.MethodPost, "/probe", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppErrorResponse(t *testing.T) {
	rec, env := do(t, newProbeServer(), http.MethodGet, "/gone", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NO_ANSWER")
	assert.Equal(t, "Unprocessable Entity", env.Message)

	rec, _ = do(t, newProbeServer(), http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	rec, env := do(t, newProbeServer(), http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, env.Status)
}

func TestCORSPreflight(t *testing.T) {
	s := newProbeServer()
	req := httptest.NewRequest(http.MethodOptions, "/probe", nil)
	req.Header.Set("Origin", "http://example.test")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://example.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerAddr(t *testing.T) {
	s := NewServer(nil, WithHost("127.0.0.1"), WithPort(9099), WithMetricsPath(""))
	assert.Equal(t, "127.0.0.1:9099", s.Addr())
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	rec, env := do(t, newProbeServer(), http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.Status)
	assert.Contains(t, rec.Body.String(), "ERR_HTTP_404")
}

func TestStartBindsAndStops(t *testing.T) {
	s := NewServer([]Handler{probeHandler{}}, WithHost("127.0.0.1"), WithPort(0), WithMetricsPath(""))
	require.NoError(t, s.Start())
	assert.NotEqual(t, "127.0.0.1:0", s.Addr())

	res, err := http.Get("http://" + s.Addr() + "/gone")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
