package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"
)

type PublisherConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
	// StatusQueue, when set, is declared and bound to RoutingKey so messages survive without a
	// subscriber.
	StatusQueue string
}

// StatusPublisher publishes archive run status messages to a topic exchange.
type StatusPublisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

func NewStatusPublisher(cfg PublisherConfig) (*StatusPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}

	sp := &StatusPublisher{conn: conn, channel: ch, exchange: cfg.Exchange, routingKey: cfg.RoutingKey}
	if err := sp.declare(cfg); err != nil {
		sp.Close()
		return nil, err
	}
	return sp, nil
}

func (sp *StatusPublisher) declare(cfg PublisherConfig) error {
	if err := sp.channel.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if cfg.StatusQueue == "" {
		return nil
	}
	if _, err := sp.channel.QueueDeclare(cfg.StatusQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.StatusQueue, err)
	}
	if err := sp.channel.QueueBind(cfg.StatusQueue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind status queue: %w", err)
	}
	return nil
}

func (sp *StatusPublisher) PublishStatus(ctx context.Context, msg []byte) error {
	return sp.channel.PublishWithContext(ctx,
		sp.exchange,
		sp.routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
}

func (sp *StatusPublisher) Close() error {
	return multierr.Append(sp.channel.Close(), sp.conn.Close())
}
