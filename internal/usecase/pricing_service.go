package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"WarrantCalc/internal/domain/models"
	domrepo "WarrantCalc/internal/domain/repository"
	domsvc "WarrantCalc/internal/domain/service"
	"WarrantCalc/internal/pricing"
	"WarrantCalc/internal/warrant"
	"WarrantCalc/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrInvalidRequest wraps every input problem found before the kernel runs.
	ErrInvalidRequest = errors.New("invalid pricing request")
	ErrInvalidExpiry  = fmt.Errorf("%w: unparseable expiry", ErrInvalidRequest)
)

// IV outcomes reported to Metrics.
const (
	IVConverged     = "converged"
	IVNotFound      = "not_found"
	IVNoConvergence = "no_convergence"
)

// PricingService is the boundary between callers that speak percent and
// days and the kernel that works in decimals and years.
type PricingService struct {
	skew     pricing.SkewParameters
	metrics  domrepo.Metrics
	validate *validator.Validate
	now      func() time.Time
}

// ServiceOption configures PricingService.
type ServiceOption func(*PricingService)

// WithClock replaces time.Now for expiry date resolution.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *PricingService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPricingService creates the service. skew is the baseline calibration
// that per-request overrides merge over.
func NewPricingService(skew pricing.SkewParameters, metrics domrepo.Metrics, opts ...ServiceOption) *PricingService {
	s := &PricingService{
		skew:     skew,
		metrics:  metrics,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calibration returns the baseline skew parameters.
func (s *PricingService) Calibration() pricing.SkewParameters { return s.skew }

// Quote prices a warrant with its Greeks.
func (s *PricingService) Quote(ctx context.Context, req models.PriceRequest) (models.QuoteResponse, error) {
	defer s.observe("quote", time.Now())
	if err := s.prepare(ctx, &req); err != nil {
		s.metrics.RecordError("quote_input")
		return models.QuoteResponse{}, err
	}

	p, err := s.params(req.Contract)
	if err != nil {
		s.metrics.RecordError("quote_input")
		return models.QuoteResponse{}, err
	}

	vol := req.Vol
	if req.Skew {
		vol = pricing.AdjustVolatility(vol, p.Spot, p.Strike, p.T, p.Type, s.skew)
	}
	p.Vol = vol / 100

	res := pricing.Evaluate(p)
	q, err := warrant.FromResult(p, res, req.Ratio)
	if err != nil {
		s.metrics.RecordError("quote_warrant")
		return models.QuoteResponse{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	s.metrics.RecordQuote(p.Type.String())

	return models.QuoteResponse{
		ID:      uuid.NewString(),
		Years:   p.T,
		Vol:     vol,
		Option:  res,
		Warrant: q,
	}, nil
}

// ImpliedVol solves for the volatility that reproduces the warrant price.
// A failed search returns an error wrapping pricing.ErrIVNotFound.
func (s *PricingService) ImpliedVol(ctx context.Context, req models.IVRequest) (models.IVResponse, error) {
	defer s.observe("implied_vol", time.Now())
	if err := s.prepare(ctx, &req); err != nil {
		s.metrics.RecordError("iv_input")
		return models.IVResponse{}, err
	}

	p, err := s.params(req.Contract)
	if err != nil {
		s.metrics.RecordError("iv_input")
		return models.IVResponse{}, err
	}
	optPrice, err := warrant.OptionPriceFromWarrant(req.Price, req.Ratio)
	if err != nil {
		s.metrics.RecordError("iv_input")
		return models.IVResponse{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	sol, err := pricing.ImpliedVolatility(p, optPrice)
	if err != nil {
		outcome := IVNotFound
		if errors.Is(err, pricing.ErrNoConvergence) {
			outcome = IVNoConvergence
		}
		s.metrics.RecordIV(outcome, sol.Iterations)
		return models.IVResponse{}, fmt.Errorf("implied vol: %w", err)
	}
	s.metrics.RecordIV(IVConverged, sol.Iterations)

	return models.IVResponse{
		ID:          uuid.NewString(),
		Years:       p.T,
		OptionPrice: optPrice,
		Vol:         sol.Volatility * 100,
		Iterations:  sol.Iterations,
		Residual:    sol.Error,
	}, nil
}

// AdjustVol applies the skew to an ATM volatility for one strike.
func (s *PricingService) AdjustVol(ctx context.Context, req models.SkewRequest) (models.SkewResponse, error) {
	defer s.observe("adjust_vol", time.Now())
	if err := s.prepare(ctx, &req); err != nil {
		s.metrics.RecordError("skew_input")
		return models.SkewResponse{}, err
	}

	typ, years, sp, err := s.skewInputs(req.Type, req.Days, req.Expiry, req.Calibration)
	if err != nil {
		s.metrics.RecordError("skew_input")
		return models.SkewResponse{}, err
	}

	return models.SkewResponse{
		Years:      years,
		AtmVol:     req.AtmVol,
		Vol:        pricing.AdjustVolatility(req.AtmVol, req.Spot, req.Strike, years, typ, sp),
		Moneyness:  math.Log(req.Spot / req.Strike),
		Parameters: sp,
	}, nil
}

// Smile evaluates the skew over a strike grid.
func (s *PricingService) Smile(ctx context.Context, req models.SmileRequest) (models.SmileResponse, error) {
	defer s.observe("smile", time.Now())
	if err := s.prepare(ctx, &req); err != nil {
		s.metrics.RecordError("smile_input")
		return models.SmileResponse{}, err
	}

	typ, years, sp, err := s.skewInputs(req.Type, req.Days, req.Expiry, req.Calibration)
	if err != nil {
		s.metrics.RecordError("smile_input")
		return models.SmileResponse{}, err
	}

	return models.SmileResponse{
		Years:      years,
		AtmVol:     req.AtmVol,
		Points:     pricing.Smile(req.AtmVol, req.Spot, years, typ, req.Strikes, sp),
		Parameters: sp,
	}, nil
}

// prepare applies struct defaults and validates. Transports that already
// validated pay a second, cheap pass.
func (s *PricingService) prepare(ctx context.Context, req interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := defaults.Set(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// params converts a boundary contract to kernel units. Vol is left unset.
func (s *PricingService) params(c models.Contract) (pricing.Params, error) {
	typ, err := pricing.ParseOptionType(c.Type)
	if err != nil {
		return pricing.Params{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	years, err := s.years(c.Days, c.Expiry)
	if err != nil {
		return pricing.Params{}, err
	}
	return pricing.Params{
		Type:     typ,
		Spot:     c.Spot,
		Strike:   c.Strike,
		T:        years,
		Rate:     c.Rate / 100,
		Dividend: c.Dividend / 100,
	}, nil
}

func (s *PricingService) years(days float64, expiry string) (float64, error) {
	if expiry != "" {
		t, ok := util.ParseTime(expiry)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidExpiry, expiry)
		}
		days = util.DaysUntil(s.now(), t)
	}
	return util.YearFraction(days, pricing.DaysPerYear), nil
}

func (s *PricingService) skewInputs(rawType string, days float64, expiry string, o pricing.SkewOverrides) (pricing.OptionType, float64, pricing.SkewParameters, error) {
	typ, err := pricing.ParseOptionType(rawType)
	if err != nil {
		return 0, 0, pricing.SkewParameters{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	years, err := s.years(days, expiry)
	if err != nil {
		return 0, 0, pricing.SkewParameters{}, err
	}
	sp := s.skew.Merge(o)
	if err := sp.Validate(); err != nil {
		return 0, 0, pricing.SkewParameters{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return typ, years, sp, nil
}

func (s *PricingService) observe(op string, start time.Time) {
	s.metrics.RecordLatency(op, time.Since(start).Seconds())
}

var _ domsvc.Pricer = (*PricingService)(nil)
