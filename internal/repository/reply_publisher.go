package repository

import (
	"context"

	"WarrantCalc/internal/domain/models"
	"WarrantCalc/internal/domain/repository"
	pkgkafka "WarrantCalc/pkg/kafka"
)

// KafkaReplyPublisher implements ReplyPublisher for Kafka. Replies are keyed
// by request id so a caller's replies stay on one partition.
type KafkaReplyPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaReplyPublisher creates Kafka reply publisher.
func NewKafkaReplyPublisher(producer *pkgkafka.Producer, topic string) repository.ReplyPublisher {
	return &KafkaReplyPublisher{producer: producer, topic: topic}
}

func (p *KafkaReplyPublisher) Publish(ctx context.Context, r *models.PricingReply) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.ID), r)
}

func (p *KafkaReplyPublisher) PublishBatch(ctx context.Context, replies []*models.PricingReply) error {
	if len(replies) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(replies))
	for i, r := range replies {
		msgs[i] = pkgkafka.Message{Key: []byte(r.ID), Value: r}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaReplyPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
