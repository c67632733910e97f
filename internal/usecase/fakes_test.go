package usecase

import (
	"context"
	"sync"

	"WarrantCalc/internal/domain/models"
)

type fakeMetrics struct {
	mu      sync.Mutex
	quotes  map[string]int
	ivs     []string
	errs    map[string]int
	latency map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{quotes: map[string]int{}, errs: map[string]int{}, latency: map[string]int{}}
}

func (m *fakeMetrics) RecordQuote(optionType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[optionType]++
}

func (m *fakeMetrics) RecordIV(outcome string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ivs = append(m.ivs, outcome)
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}

func (m *fakeMetrics) RecordLatency(op string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency[op]++
}

type fakeReplies struct {
	mu      sync.Mutex
	replies []*models.PricingReply
	err     error
}

func (p *fakeReplies) Publish(_ context.Context, r *models.PricingReply) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.replies = append(p.replies, r)
	return nil
}

func (p *fakeReplies) PublishBatch(ctx context.Context, rs []*models.PricingReply) error {
	for _, r := range rs {
		if err := p.Publish(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (p *fakeReplies) Close() error { return nil }
