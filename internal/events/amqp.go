package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AMQPChannel is the part of *amqp.Channel the bridge needs.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPBridge forwards bus events to a RabbitMQ topic exchange, routed by
// event type.
type AMQPBridge struct {
	ch       AMQPChannel
	exchange string
	logger   *zerolog.Logger
	closers  []func() error
}

// DialAMQP connects to the broker, declares the topic exchange and returns a
// bridge owning the connection.
func DialAMQP(url, exchange string, logger *zerolog.Logger) (*AMQPBridge, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	b := NewAMQPBridge(ch, exchange, logger)
	b.closers = []func() error{ch.Close, conn.Close}
	return b, nil
}

func NewAMQPBridge(ch AMQPChannel, exchange string, logger *zerolog.Logger) *AMQPBridge {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AMQPBridge{ch: ch, exchange: exchange, logger: logger}
}

// Handle publishes one event. Delivery is persistent JSON.
func (b *AMQPBridge) Handle(ctx context.Context, event *Event) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    event.CreatedAt.UTC(),
		Body:         event.Payload,
	}
	if err := b.ch.PublishWithContext(ctx, b.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", event.Type, err)
	}
	b.logger.Debug().Str("event_type", event.Type).Str("event_id", event.ID).Msg("event forwarded to rabbitmq")
	return nil
}

func (b *AMQPBridge) Close() error {
	var firstErr error
	for _, c := range b.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
