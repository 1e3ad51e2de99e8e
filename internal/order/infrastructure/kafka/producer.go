// Package kafka wraps the kafka-go writer the outbox relay publishes through
// and the reader that consumes order events.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer publishes outbox events. Messages are keyed by order id, so the Hash
// balancer keeps one order's events on one partition and in order.
type Writer struct {
	*kafka.Writer
	log *slog.Logger
}

type WriterOption func(*kafka.Writer)

func WithBatchTimeout(d time.Duration) WriterOption {
	return func(w *kafka.Writer) { w.BatchTimeout = d }
}

func WithCompression(c kafka.Compression) WriterOption {
	return func(w *kafka.Writer) { w.Compression = c }
}

// WithMaxAttempts bounds the writer's own retries; the outbox relay retries
// on top of it.
func WithMaxAttempts(n int) WriterOption {
	return func(w *kafka.Writer) { w.MaxAttempts = n }
}

func NewWriter(log *slog.Logger, brokers []string, opts ...WriterOption) *Writer {
	kw := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error("kafka writer", "detail", fmt.Sprintf(msg, args...))
		}),
	}
	for _, o := range opts {
		o(kw)
	}
	return &Writer{Writer: kw, log: log}
}

func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := w.Writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write %d message(s): %w", len(msgs), err)
	}
	w.log.Debug("kafka write", "messages", len(msgs))
	return nil
}
