package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaBus publishes events to a topic and consumes them back through a
// consumer group, so every API replica shares one stream of hook work.
type KafkaBus struct {
	*handlers
	writer *kafka.Writer
	reader *kafka.Reader
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewKafkaBus(brokers []string, topic, groupID string, logger *zap.Logger) *KafkaBus {
	return &KafkaBus{
		handlers: newHandlers(logger),
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		logger: logger,
	}
}

func (b *KafkaBus) Subscribe(name string, h Handler) {
	b.add(name, h)
}

func (b *KafkaBus) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	err = b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Name),
		Value: value,
		Time:  e.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Name, err)
	}
	return nil
}

// Start launches the consumer loop.
func (b *KafkaBus) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.consume(ctx)
}

func (b *KafkaBus) consume(ctx context.Context) {
	defer close(b.done)
	for {
		msg, err := b.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Error("Kafka read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var e Event
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			b.logger.Warn("Dropping malformed event",
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			continue
		}
		hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
		b.dispatch(hctx, e)
		cancel()
	}
}

// Close stops the consumer and flushes the writer.
func (b *KafkaBus) Close(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
		select {
		case <-b.done:
		case <-ctx.Done():
		}
	}
	rerr := b.reader.Close()
	werr := b.writer.Close()
	return errors.Join(rerr, werr)
}
