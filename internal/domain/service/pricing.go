package service

import (
	"context"

	"WarrantCalc/internal/domain/models"
)

// Pricer is what the transports (HTTP, Kafka, CLI) need from the pricing use case.
type Pricer interface {
	Quote(ctx context.Context, req models.PriceRequest) (models.QuoteResponse, error)
	ImpliedVol(ctx context.Context, req models.IVRequest) (models.IVResponse, error)
	AdjustVol(ctx context.Context, req models.SkewRequest) (models.SkewResponse, error)
	Smile(ctx context.Context, req models.SmileRequest) (models.SmileResponse, error)
}
