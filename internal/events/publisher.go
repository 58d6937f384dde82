// Package events publishes security-relevant audit events (admin
// promotion, checkout bypass, calendar linkage) to Kafka. Publishing is
// best effort: the service runs without brokers and a failed publish
// never fails the request that produced it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"membership-service/internal/config"
	"membership-service/internal/util"
)

const (
	AdminPromoted     = "admin.promoted"
	CheckoutBypassed  = "checkout.bypassed"
	CalendarConnected = "calendar.connected"
)

type auditEvent struct {
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Fields     map[string]string `json:"fields,omitempty"`
}

type Publisher struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

// NewPublisher returns a no-op publisher when no brokers are configured.
func NewPublisher(cfg *config.Config, logger *zap.Logger) *Publisher {
	p := &Publisher{topic: cfg.Kafka.Topic, logger: logger}

	if len(cfg.Kafka.Brokers) == 0 {
		util.Info("Kafka brokers not configured - audit events disabled")
		return p
	}

	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	util.Info("Kafka audit publisher initialized",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic))
	return p
}

// Publish emits one audit event. Errors are logged, never returned.
func (p *Publisher) Publish(ctx context.Context, eventType string, fields map[string]string) {
	if p.writer == nil {
		return
	}

	value, err := json.Marshal(auditEvent{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Fields:     fields,
	})
	if err != nil {
		p.logger.Error("failed to encode audit event",
			zap.String("type", eventType),
			zap.Error(err))
		return
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventType),
		Value: value,
	}); err != nil {
		p.logger.Warn("failed to publish audit event",
			zap.String("type", eventType),
			zap.Error(err))
		return
	}

	p.logger.Debug("Audit event published", zap.String("type", eventType))
}

func (p *Publisher) Close() error {
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			util.Error("failed to close Kafka audit publisher", zap.Error(err))
			return err
		}
		util.Info("Kafka audit publisher closed")
	}
	return nil
}
