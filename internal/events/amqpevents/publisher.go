package amqpevents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/courtledger/pkg/booking"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeKindTopic = "topic"
	contentTypeJSON   = "application/json"
)

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends booking events to a topic exchange keyed by event type.
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// Dial connects to RabbitMQ and declares a durable topic exchange.
func Dial(url string, exchange string) (*Publisher, error) {
	if strings.TrimSpace(exchange) == "" {
		return nil, fmt.Errorf("exchange is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, exchangeKindTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func newPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Publish implements booking.EventPublisher.
func (publisher *Publisher) Publish(ctx context.Context, event booking.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return publisher.ch.PublishWithContext(ctx, publisher.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
}

// Close releases the channel and connection.
func (publisher *Publisher) Close() error {
	if publisher.ch != nil {
		_ = publisher.ch.Close()
	}
	if publisher.conn != nil {
		return publisher.conn.Close()
	}
	return nil
}
