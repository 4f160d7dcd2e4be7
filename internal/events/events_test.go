package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func sampleOrder() domain.Order {
	return domain.Order{
		ID:         "o1",
		UserID:     "u1",
		Status:     domain.StatusCancelled,
		TotalPrice: decimal.RequireFromString("18.80"),
		StatusHistory: []domain.StatusChange{
			{Status: domain.StatusProcessing, Note: "Order placed successfully"},
			{Status: domain.StatusCancelled, Note: "Order cancelled by user"},
		},
	}
}

func TestKafkaPublisher_KeysByUser(t *testing.T) {
	w := &recordingWriter{}
	p := newKafka(w, "orders", nil)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, p.PublishOrder(context.Background(), NewOrderEvent(OrderCancelled, sampleOrder(), at)))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "u1", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "order.cancelled", decoded["type"])
	assert.Equal(t, "Cancelled", decoded["status"])
	assert.Equal(t, "Order cancelled by user", decoded["note"])
	assert.Equal(t, "18.8", decoded["totalPrice"])
}

func TestKafkaPublisher_WrapsWriteErrors(t *testing.T) {
	boom := errors.New("broker down")
	p := newKafka(&recordingWriter{err: boom}, "orders", nil)

	err := p.PublishOrder(context.Background(), NewOrderEvent(OrderPlaced, sampleOrder(), time.Now()))
	assert.ErrorIs(t, err, boom)
}

func TestLogPublisher_NeverFails(t *testing.T) {
	p := NewLog(nil)
	assert.NoError(t, p.PublishOrder(context.Background(), NewOrderEvent(OrderPlaced, sampleOrder(), time.Now())))
	assert.NoError(t, p.Close())
}
