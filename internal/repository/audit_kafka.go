package repository

import (
	"context"

	"HyperTrade/internal/domain/models"
	pkgkafka "HyperTrade/pkg/kafka"
)

// KafkaAuditSink publishes audit records keyed by request id.
type KafkaAuditSink struct {
	producer *pkgkafka.Producer
}

func NewKafkaAuditSink(producer *pkgkafka.Producer) *KafkaAuditSink {
	return &KafkaAuditSink{producer: producer}
}

func (p *KafkaAuditSink) Name() string { return "kafka" }

func (p *KafkaAuditSink) Write(ctx context.Context, rec models.AuditRecord) error {
	return p.producer.Publish(ctx, "", []byte(rec.RequestID), rec)
}

func (p *KafkaAuditSink) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
