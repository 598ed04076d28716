package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Event routing keys.
const (
	EventOperationRecorded       = "operation.recorded"
	EventWithdrawalStatusChanged = "withdrawal.status_changed"
	EventBetSettled              = "bet.settled"
	EventOperationDeleted        = "operation.deleted"
	EventPromotionCreated        = "promotion.created"
	EventPromotionRollover       = "promotion.rollover_applied"
	EventPromotionCompleted      = "promotion.completed"
	EventPromotionExpired        = "promotion.expired"
)

// Event is the envelope published for a committed domain change.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	AggregateID uuid.UUID `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload"`
}

func NewEvent(eventType string, aggregateID uuid.UUID, payload any) Event {
	return Event{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}

// Publisher emits domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}

// AMQPChannel is the subset of *amqp.Channel used by AMQPPublisher.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher publishes persistent JSON messages to a topic exchange, using
// the event type as routing key.
type AMQPPublisher struct {
	channel  AMQPChannel
	exchange string
	closers  []func() error
}

func NewAMQPPublisher(ch AMQPChannel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{channel: ch, exchange: exchange}
}

// DialAMQP connects to the broker and declares a durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	p := NewAMQPPublisher(ch, exchange)
	p.closers = []func() error{ch.Close, conn.Close}
	return p, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	zap.L().Debug("event published", zap.String("type", event.Type), zap.String("aggregate_id", event.AggregateID.String()))
	return nil
}

// Close releases the channel and connection opened by DialAMQP.
func (p *AMQPPublisher) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
