package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shopflow/pkg/idempotency"
	"github.com/dmehra2102/shopflow/pkg/tracing"
)

// Message is an order event as read back from the topic.
type Message struct {
	EventID string
	Type    string
	OrderID string
	Payload []byte
}

type Handler func(ctx context.Context, m Message) error

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads order events, skipping redeliveries of an event id it has
// already handled.
type Consumer struct {
	log    *slog.Logger
	reader Reader
	idem   idempotency.Store
	handle Handler
	tracer trace.Tracer
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, idem idempotency.Store, handle Handler) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		idem:   idem,
		handle: handle,
		tracer: otel.Tracer("order-events-consumer"),
	}
}

// Run returns nil once ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		m := Message{
			EventID: tracing.HeaderValue(msg.Headers, "event_id"),
			Type:    tracing.HeaderValue(msg.Headers, "event_type"),
			OrderID: string(msg.Key),
			Payload: msg.Value,
		}
		key := idempotency.Key("order-events", m.EventID)
		if m.EventID == "" {
			key = idempotency.Key("order-events", fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset))
		}
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "Consume"+m.Type)
		span.SetAttributes(attribute.String("order.id", m.OrderID), attribute.String("event.id", m.EventID))

		if err := c.handle(msgCtx, m); err != nil {
			c.log.Error("order event handling failed", "order_id", m.OrderID, "type", m.Type, "err", err)
		}
		span.End()
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Warn("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}
