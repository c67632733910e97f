package repository

import (
	"context"

	"WarrantCalc/internal/domain/models"
)

// ReplyPublisher delivers pricing replies to the transport that asked.
type ReplyPublisher interface {
	Publish(ctx context.Context, r *models.PricingReply) error
	PublishBatch(ctx context.Context, replies []*models.PricingReply) error
	Close() error
}

// Metrics records pricing activity.
type Metrics interface {
	RecordQuote(optionType string)
	// RecordIV records a solver outcome ("converged", "not_found", "no_convergence").
	RecordIV(outcome string, iterations int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
