package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"WarrantCalc/internal/domain/models"
	domrepo "WarrantCalc/internal/domain/repository"
	domsvc "WarrantCalc/internal/domain/service"
	pkgkafka "WarrantCalc/pkg/kafka"

	"github.com/google/uuid"
)

// KafkaPricingHandler answers pricing requests from a Kafka topic.
// Every decodable request gets exactly one reply; pricing failures travel
// in the reply. Only decode and publish failures are returned, so the
// consumer retries them and finally routes them to the DLQ.
type KafkaPricingHandler struct {
	topic   string
	pricer  domsvc.Pricer
	replies domrepo.ReplyPublisher
	metrics domrepo.Metrics
	seen    SeenSet
	seenTTL time.Duration
}

// SeenSet remembers answered request IDs. Only IDs are kept, never results.
type SeenSet interface {
	Get(key string) (any, bool)
	Set(key string, v any, ttl time.Duration)
}

// HandlerOption configures KafkaPricingHandler.
type HandlerOption func(*KafkaPricingHandler)

// WithDedupe drops redelivered requests whose caller-supplied ID was
// answered within ttl.
func WithDedupe(seen SeenSet, ttl time.Duration) HandlerOption {
	return func(h *KafkaPricingHandler) {
		h.seen = seen
		h.seenTTL = ttl
	}
}

func NewKafkaPricingHandler(topic string, pricer domsvc.Pricer, replies domrepo.ReplyPublisher, metrics domrepo.Metrics, opts ...HandlerOption) *KafkaPricingHandler {
	h := &KafkaPricingHandler{topic: topic, pricer: pricer, replies: replies, metrics: metrics}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *KafkaPricingHandler) Topic() string { return h.topic }

// incoming message schema: models.PricingMessage
func (h *KafkaPricingHandler) Handle(ctx context.Context, b []byte) error {
	var m models.PricingMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode pricing message: %w", err)
	}
	dedupe := h.seen != nil && m.ID != ""
	if dedupe {
		if _, ok := h.seen.Get(m.ID); ok {
			h.metrics.RecordError("kafka_duplicate")
			return nil
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	start := time.Now()
	reply := h.answer(ctx, &m)
	h.metrics.RecordLatency("kafka_answer_seconds", time.Since(start).Seconds())

	if err := h.replies.Publish(ctx, reply); err != nil {
		h.metrics.RecordError("reply_publish")
		return fmt.Errorf("publish reply %s: %w", m.ID, err)
	}
	if dedupe {
		h.seen.Set(m.ID, struct{}{}, h.seenTTL)
	}
	return nil
}

func (h *KafkaPricingHandler) answer(ctx context.Context, m *models.PricingMessage) *models.PricingReply {
	reply := &models.PricingReply{ID: m.ID, Kind: m.Kind, Created: time.Now().UTC()}

	switch m.Kind {
	case models.KindPrice:
		if m.Price == nil {
			reply.Error = "price request body missing"
			break
		}
		q, err := h.pricer.Quote(ctx, *m.Price)
		if err != nil {
			reply.Error = err.Error()
			break
		}
		q.ID = m.ID
		reply.Quote = &q
	case models.KindIV:
		if m.IV == nil {
			reply.Error = "iv request body missing"
			break
		}
		res, err := h.pricer.ImpliedVol(ctx, *m.IV)
		if err != nil {
			reply.Error = err.Error()
			break
		}
		res.ID = m.ID
		reply.IV = &res
	default:
		reply.Error = fmt.Sprintf("unknown kind %q", m.Kind)
	}

	if reply.Error != "" {
		h.metrics.RecordError("kafka_request")
	}
	return reply
}

var _ pkgkafka.MessageHandler = (*KafkaPricingHandler)(nil)
