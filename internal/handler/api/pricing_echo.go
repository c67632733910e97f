package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	models "WarrantCalc/internal/domain/models"
	domsvc "WarrantCalc/internal/domain/service"
	"WarrantCalc/internal/pricing"
	"WarrantCalc/internal/service/metrics"
	"WarrantCalc/internal/service/ratelimit"
	"WarrantCalc/internal/usecase"
	xhttp "WarrantCalc/pkg/http"
	xlogger "WarrantCalc/pkg/logger"

	"github.com/labstack/echo/v4"
)

// maxBatchBytes bounds a CSV upload to /api/batch.
const maxBatchBytes = 4 << 20

// PricingEchoHandler exposes the pricing use case over HTTP.
type PricingEchoHandler struct {
	logger      *xlogger.Logger
	pricer      domsvc.Pricer
	batch       *usecase.BatchPricer
	calibration pricing.SkewParameters

	rl        *ratelimit.Limiter
	burst     float64
	perSecond float64
}

// HandlerOption configures PricingEchoHandler.
type HandlerOption func(*PricingEchoHandler)

// WithRateLimit limits each client IP to burst requests, refilled at perSecond.
func WithRateLimit(l *ratelimit.Limiter, burst, perSecond float64) HandlerOption {
	return func(h *PricingEchoHandler) {
		h.rl = l
		h.burst = burst
		h.perSecond = perSecond
	}
}

// WithCalibration sets the skew parameters reported by GET /api/calibration.
func WithCalibration(sp pricing.SkewParameters) HandlerOption {
	return func(h *PricingEchoHandler) {
		h.calibration = sp
	}
}

func NewPricingEchoHandler(logger *xlogger.Logger, pricer domsvc.Pricer, opts ...HandlerOption) *PricingEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &PricingEchoHandler{
		logger:      logger,
		pricer:      pricer,
		batch:       usecase.NewBatchPricer(pricer),
		calibration: pricing.DefaultSkewParameters(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *PricingEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	if h.rl != nil {
		g.Use(h.rateLimit)
	}
	g.POST("/price", h.Price)
	g.POST("/iv", h.ImpliedVol)
	g.POST("/skew", h.Skew)
	g.POST("/smile", h.Smile)
	g.POST("/batch", h.Batch)
	g.GET("/calibration", h.Calibration)
}

func (h *PricingEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *PricingEchoHandler) Price(c echo.Context) error {
	defer observe("price", time.Now())
	req := &models.PriceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("price", "ERR_VALIDATION").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.pricer.Quote(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "price", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PricingEchoHandler) ImpliedVol(c echo.Context) error {
	defer observe("iv", time.Now())
	req := &models.IVRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("iv", "ERR_VALIDATION").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.pricer.ImpliedVol(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "iv", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PricingEchoHandler) Skew(c echo.Context) error {
	defer observe("skew", time.Now())
	req := &models.SkewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("skew", "ERR_VALIDATION").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.pricer.AdjustVol(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "skew", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PricingEchoHandler) Smile(c echo.Context) error {
	defer observe("smile", time.Now())
	req := &models.SmileRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("smile", "ERR_VALIDATION").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.pricer.Smile(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "smile", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Batch prices a CSV body and answers with the enriched CSV. The summary
// travels in X-Batch-* headers.
func (h *PricingEchoHandler) Batch(c echo.Context) error {
	defer observe("batch", time.Now())
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBatchBytes+1))
	if err != nil {
		return h.fail(c, "batch", err)
	}
	if len(body) > maxBatchBytes {
		metrics.APIErrors.WithLabelValues("batch", "ERR_TOO_LARGE").Inc()
		return xhttp.AppErrorResponse(c, xhttp.PayloadTooLargeError(maxBatchBytes))
	}

	var out bytes.Buffer
	sum, err := h.batch.Run(c.Request().Context(), bytes.NewReader(body), &out)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = xhttp.BadRequestError(err.Error()).WithError(err)
		}
		return h.fail(c, "batch", err)
	}

	hdr := c.Response().Header()
	hdr.Set("X-Batch-Rows", strconv.Itoa(sum.Rows))
	hdr.Set("X-Batch-Failed", strconv.Itoa(sum.Failed))
	hdr.Set("X-Batch-Quoted", strconv.Itoa(sum.Quoted))
	hdr.Set("X-Batch-Solved", strconv.Itoa(sum.Solved))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", out.Bytes())
}

func (h *PricingEchoHandler) Calibration(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.calibration)
}

// fail maps use case errors onto the response envelope.
func (h *PricingEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, usecase.ErrInvalidRequest):
		appErr = xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, pricing.ErrIVNotFound):
		appErr = xhttp.UnprocessableError("ERR_IV_NOT_FOUND", err.Error()).WithError(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		appErr = xhttp.CancelledError().WithError(err)
	default:
		h.logger.Error("pricing usecase error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
		appErr = xhttp.InternalError("pricing failed").WithError(err)
	}
	metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *PricingEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.rl.Allow(c.RealIP(), h.burst, h.perSecond) {
			h.logger.Warn("api rate_limited", xlogger.String("remote", c.RealIP()), xlogger.String("path", c.Path()))
			metrics.APIErrors.WithLabelValues(c.Path(), "ERR_RATE_LIMITED").Inc()
			c.Response().Header().Set("Retry-After", "1")
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
		}
		return next(c)
	}
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
