package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"storefront/internal/logging"
)

const writeTimeout = 5 * time.Second

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafka writes to topic on brokers. Messages are keyed by user id so one
// user's events keep their order within a partition.
func NewKafka(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           writeTimeout,
	}
	return newKafka(w, topic, logger)
}

func newKafka(w messageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, logger: logging.OrNop(logger).Named("events")}
}

func (p *KafkaPublisher) PublishOrder(ctx context.Context, e OrderEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UserID),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}); err != nil {
		return fmt.Errorf("publish %s to %s: %w", e.Type, p.topic, err)
	}
	p.logger.Debug("event published", zap.String("type", string(e.Type)), zap.String("orderID", e.OrderID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher records events in the log only. It is used when no brokers
// are configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logging.OrNop(logger).Named("events")}
}

func (p *LogPublisher) PublishOrder(_ context.Context, e OrderEvent) error {
	p.logger.Info("order event",
		zap.String("type", string(e.Type)),
		zap.String("orderID", e.OrderID),
		zap.String("userID", e.UserID),
		zap.String("status", string(e.Status)),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
