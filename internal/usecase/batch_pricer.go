package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"WarrantCalc/internal/domain/models"
	domsvc "WarrantCalc/internal/domain/service"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
)

// BatchRow is one CSV line. Input columns mirror models.Contract; a row with
// market_price gets an implied vol, a row with vol (or a solved iv) gets a
// quote. Output columns are filled in place.
type BatchRow struct {
	Type        string  `csv:"type"`
	Spot        float64 `csv:"spot"`
	Strike      float64 `csv:"strike"`
	Days        float64 `csv:"days"`
	Expiry      string  `csv:"expiry"`
	Rate        float64 `csv:"rate"`
	Dividend    float64 `csv:"dividend"`
	Ratio       float64 `csv:"ratio"`
	Vol         float64 `csv:"vol"`
	Skew        bool    `csv:"skew"`
	MarketPrice float64 `csv:"market_price"`

	IV        float64 `csv:"iv"`
	Price     string  `csv:"warrant_price"`
	Delta     string  `csv:"warrant_delta"`
	Breakeven string  `csv:"breakeven"`
	Gamma     float64 `csv:"gamma"`
	Theta     float64 `csv:"theta"`
	Vega      float64 `csv:"vega"`
	Rho       float64 `csv:"rho"`
	Error     string  `csv:"error"`

	quote *models.QuoteResponse `csv:"-"`
	iv    *models.IVResponse    `csv:"-"`
}

// resetOutputs clears the output columns so a resubmitted result file is
// priced from its inputs alone.
func (r *BatchRow) resetOutputs() {
	r.IV = 0
	r.Price, r.Delta, r.Breakeven, r.Error = "", "", "", ""
	r.Gamma, r.Theta, r.Vega, r.Rho = 0, 0, 0, 0
	r.quote, r.iv = nil, nil
}

func (r *BatchRow) contract() models.Contract {
	return models.Contract{
		Type:     r.Type,
		Spot:     r.Spot,
		Strike:   r.Strike,
		Days:     r.Days,
		Expiry:   r.Expiry,
		Rate:     r.Rate,
		Dividend: r.Dividend,
		Ratio:    r.Ratio,
	}
}

// BatchSummary describes a finished batch. Statistics are over the rows
// that produced the value; they stay zero when no row did.
type BatchSummary struct {
	Rows        int     `json:"rows"`
	Failed      int     `json:"failed"`
	Quoted      int     `json:"quoted"`
	Solved      int     `json:"solved"`
	PriceMean   float64 `json:"price_mean"`
	PriceMedian float64 `json:"price_median"`
	PriceStdDev float64 `json:"price_stddev"`
	IVMean      float64 `json:"iv_mean"`
	IVMedian    float64 `json:"iv_median"`
	IVStdDev    float64 `json:"iv_stddev"`
}

// BatchPricer runs a CSV of contracts through a Pricer.
type BatchPricer struct {
	pricer domsvc.Pricer
}

func NewBatchPricer(pricer domsvc.Pricer) *BatchPricer {
	return &BatchPricer{pricer: pricer}
}

// Run reads rows from in, prices them and writes the enriched rows to out.
func (b *BatchPricer) Run(ctx context.Context, in io.Reader, out io.Writer) (BatchSummary, error) {
	var rows []*BatchRow
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return BatchSummary{}, fmt.Errorf("read batch csv: %w", err)
	}

	sum, err := b.Price(ctx, rows)
	if err != nil {
		return sum, err
	}

	if err := gocsv.Marshal(rows, out); err != nil {
		return sum, fmt.Errorf("write batch csv: %w", err)
	}
	return sum, nil
}

// Price fills the output columns of every row. Row failures are recorded on
// the row; only cancellation aborts the batch.
func (b *BatchPricer) Price(ctx context.Context, rows []*BatchRow) (BatchSummary, error) {
	sum := BatchSummary{Rows: len(rows)}
	var prices, ivs []float64

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		price, err := b.priceRow(ctx, row)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return sum, err
			}
			row.Error = err.Error()
			sum.Failed++
		}
		if row.iv != nil {
			sum.Solved++
			ivs = append(ivs, row.IV)
		}
		if row.quote != nil {
			sum.Quoted++
			prices = append(prices, price)
		}
	}

	sum.PriceMean, sum.PriceMedian, sum.PriceStdDev = describe(prices)
	sum.IVMean, sum.IVMedian, sum.IVStdDev = describe(ivs)
	return sum, nil
}

// priceRow returns the warrant price it quoted.
func (b *BatchPricer) priceRow(ctx context.Context, row *BatchRow) (float64, error) {
	row.resetOutputs()
	c := row.contract()

	if row.MarketPrice > 0 {
		res, err := b.pricer.ImpliedVol(ctx, models.IVRequest{Contract: c, Price: row.MarketPrice})
		if err != nil {
			return 0, err
		}
		row.iv = &res
		row.IV = res.Vol
		if row.Vol <= 0 {
			row.Vol = res.Vol
		}
	}

	if row.Vol <= 0 {
		return 0, fmt.Errorf("%w: row needs vol or market_price", ErrInvalidRequest)
	}

	q, err := b.pricer.Quote(ctx, models.PriceRequest{Contract: c, Vol: row.Vol, Skew: row.Skew})
	if err != nil {
		return 0, err
	}
	row.quote = &q
	row.Price = q.Warrant.Price.String()
	row.Delta = q.Warrant.Delta.String()
	row.Breakeven = q.Warrant.Breakeven.String()
	row.Gamma = q.Option.Greeks.Gamma
	row.Theta = q.Option.Greeks.Theta
	row.Vega = q.Option.Greeks.Vega
	row.Rho = q.Option.Greeks.Rho
	return q.Warrant.Price.InexactFloat64(), nil
}

// Replies turns priced rows into pricing replies so a batch can be fanned
// out on the reply topic. Rows are numbered within batchID.
func (b *BatchPricer) Replies(batchID string, rows []*BatchRow) []*models.PricingReply {
	now := time.Now().UTC()
	out := make([]*models.PricingReply, 0, len(rows))
	for i, row := range rows {
		r := &models.PricingReply{
			ID:      fmt.Sprintf("%s-%d", batchID, i+1),
			Kind:    models.KindPrice,
			Quote:   row.quote,
			IV:      row.iv,
			Error:   row.Error,
			Created: now,
		}
		if row.quote == nil && row.iv != nil {
			r.Kind = models.KindIV
		}
		out = append(out, r)
	}
	return out
}

// describe returns mean, median and population standard deviation.
func describe(xs []float64) (mean, median, stddev float64) {
	if len(xs) == 0 {
		return 0, 0, 0
	}
	data := stats.Float64Data(xs)
	mean, _ = data.Mean()
	median, _ = data.Median()
	stddev, _ = data.StandardDeviation()
	return mean, median, stddev
}
