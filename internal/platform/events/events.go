// Package events publishes domain events raised by the consistency rules
// (an invoice becoming paid, a stock movement, an item falling to its
// minimum). Publishing happens after the owning transaction commits and
// never fails the request.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	InvoicePaid       = "invoice.paid"
	InventoryMovement = "inventory.movement"
	InventoryLowStock = "inventory.low_stock"
)

// Event is the envelope written to the topic.
type Event struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	EntityType string      `json:"entity_type"`
	EntityID   int64       `json:"entity_id"`
	Payload    interface{} `json:"payload"`
	Timestamp  time.Time   `json:"timestamp"`
}

// New builds an event with a fresh id stamped at now.
func New(eventType, entityType string, entityID int64, payload interface{}) Event {
	return Event{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
	}
}

// Key partitions events so that all events of one entity stay ordered.
func (e Event) Key() string {
	return fmt.Sprintf("%s:%d", e.EntityType, e.EntityID)
}

type Publisher interface {
	Publish(ctx context.Context, evts ...Event) error
}

// messageWriter is the part of kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON events to a single topic.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evts ...Event) error {
	msgs := make([]kafka.Message, 0, len(evts))
	for _, e := range evts {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", e.EventType, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Key()),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.EventType)},
			},
		})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// LogPublisher logs events instead of shipping them. Used when no brokers are
// configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, evts ...Event) error {
	for _, e := range evts {
		p.logger.Info().
			Str("event_id", e.EventID).
			Str("event_type", e.EventType).
			Str("key", e.Key()).
			Interface("payload", e.Payload).
			Msg("domain event")
	}
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }

// Emit publishes evts and logs a failure. Callers invoke it after commit;
// the write already happened, so a broker outage is only reported.
func Emit(ctx context.Context, p Publisher, logger zerolog.Logger, evts ...Event) {
	if p == nil || len(evts) == 0 {
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), evts...); err != nil {
		logger.Warn().Err(err).Int("events", len(evts)).Msg("failed to publish domain events")
	}
}
