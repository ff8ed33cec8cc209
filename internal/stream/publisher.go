// Package stream publishes match lifecycle events to Kafka.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/evetabi/matchsim/internal/events"
	"github.com/segmentio/kafka-go"
)

// Writer is the part of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// writeTimeout bounds one broker round trip.
const writeTimeout = 10 * time.Second

// NewKafkaWriter builds the topic writer.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           writeTimeout,
	}
}

// Publisher forwards bus events to Kafka.  Enqueue never blocks: the bus
// delivers on the simulation goroutine, so a slow broker costs dropped
// events, never a stalled tick.
type Publisher struct {
	writer  Writer
	queue   chan kafka.Message
	logger  *slog.Logger
	dropped atomic.Int64
	done    chan struct{}
}

// NewPublisher creates a publisher that buffers up to buffer messages.
func NewPublisher(w Writer, buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		writer: w,
		queue:  make(chan kafka.Message, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Attach forwards every bus event.  Countdown ticks are skipped; they carry
// nothing a downstream consumer cannot derive.
func (p *Publisher) Attach(bus *events.Bus) (detach func()) {
	return bus.SubscribeAll(func(e events.Event) {
		if e.Kind() == events.KindCountdown {
			return
		}
		p.Enqueue(e)
	})
}

// Enqueue encodes e and queues it.  It reports false when the event was
// dropped.
func (p *Publisher) Enqueue(e events.Event) bool {
	msg, err := Encode(e)
	if err != nil {
		p.logger.Error("stream: encode event", "kind", e.Kind(), "err", err)
		return false
	}
	select {
	case p.queue <- msg:
		return true
	default:
		n := p.dropped.Add(1)
		p.logger.Warn("stream: queue full, event dropped", "kind", e.Kind(), "dropped_total", n)
		return false
	}
}

// Encode turns e into a message keyed by match id, so one match's events
// stay ordered within a partition.
func Encode(e events.Event) (kafka.Message, error) {
	value, err := json.Marshal(events.Wrap(e))
	if err != nil {
		return kafka.Message{}, fmt.Errorf("stream.Encode: %w", err)
	}
	h := events.HeaderOf(e)
	return kafka.Message{
		Key:   []byte(h.MatchID.String()),
		Value: value,
		Time:  h.At,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind())},
		},
	}, nil
}

// Dropped returns the number of events lost to a full queue.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Run writes queued messages until ctx is cancelled, then flushes what is
// left and closes the writer.
func (p *Publisher) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			p.flush()
			if err := p.writer.Close(); err != nil {
				p.logger.Warn("stream: close writer", "err", err)
			}
			p.logger.Info("stream publisher stopped")
			return
		case msg := <-p.queue:
			p.write(context.Background(), msg)
		}
	}
}

// Done is closed once Run has returned.
func (p *Publisher) Done() <-chan struct{} { return p.done }

func (p *Publisher) flush() {
	for {
		select {
		case msg := <-p.queue:
			p.write(context.Background(), msg)
		default:
			return
		}
	}
}

func (p *Publisher) write(ctx context.Context, msg kafka.Message) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("stream: publish event", "key", string(msg.Key), "err", err)
		return
	}
	p.logger.Debug("stream: event published", "key", string(msg.Key))
}
