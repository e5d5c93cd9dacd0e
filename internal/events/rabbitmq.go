package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	dialTimeout = 5 * time.Second

	// redialInterval spaces reconnect attempts while the broker is down.
	redialInterval = 5 * time.Second
)

// errPublisherClosed is returned by Publish after Close.
var errPublisherClosed = errors.New("event publisher closed")

// amqpChannel is the subset of *amqp.Channel used for publishing.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

// dialFunc opens a connection and a channel on it.
type dialFunc func() (io.Closer, amqpChannel, error)

// RabbitMQPublisher publishes events as persistent JSON messages to a durable
// topic exchange, routed by event type. A channel closed by the broker is
// replaced on the next publish.
type RabbitMQPublisher struct {
	dial     dialFunc
	exchange string
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	conn     io.Closer
	channel  amqpChannel
	closed   chan *amqp.Error
	nextDial time.Time
	shut     bool
}

// NewRabbitMQPublisher dials the broker and declares the exchange.
func NewRabbitMQPublisher(url, exchange string, logger zerolog.Logger) (*RabbitMQPublisher, error) {
	dial := func() (io.Closer, amqpChannel, error) {
		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(dialTimeout),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
		}
		return conn, ch, nil
	}
	return newRabbitMQPublisher(dial, exchange, logger)
}

func newRabbitMQPublisher(dial dialFunc, exchange string, logger zerolog.Logger) (*RabbitMQPublisher, error) {
	p := &RabbitMQPublisher{
		dial:     dial,
		exchange: exchange,
		logger:   logger.With().Str("component", "rabbitmq-event-publisher").Logger(),
		now:      time.Now,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	p.logger.Info().Str("exchange", exchange).Msg("event publisher initialised")
	return p, nil
}

// connect dials and declares the exchange. The caller holds mu or owns p.
func (p *RabbitMQPublisher) connect() error {
	conn, ch, err := p.dial()
	if err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		if conn != nil {
			_ = conn.Close()
		}
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	p.conn = conn
	p.channel = ch
	p.closed = ch.NotifyClose(make(chan *amqp.Error, 1))
	return nil
}

// ensureChannel returns with a usable channel, redialling when the broker
// has closed the current one. Dials are at most one per redialInterval.
func (p *RabbitMQPublisher) ensureChannel() error {
	if p.shut {
		return errPublisherClosed
	}
	if p.channel != nil {
		select {
		case reason := <-p.closed:
			p.logger.Warn().Interface("reason", reason).Msg("RabbitMQ channel closed")
			p.drop()
		default:
			return nil
		}
	}

	now := p.now()
	if now.Before(p.nextDial) {
		return amqp.ErrClosed
	}
	if err := p.connect(); err != nil {
		p.nextDial = now.Add(redialInterval)
		p.logger.Error().Err(err).Msg("failed to reconnect to RabbitMQ")
		return err
	}
	p.logger.Info().Str("exchange", p.exchange).Msg("reconnected to RabbitMQ")
	return nil
}

func (p *RabbitMQPublisher) drop() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.channel, p.closed = nil, nil, nil
}

// Publish sends event with its type as routing key. Channels are not safe
// for concurrent use, so publishes are serialised.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		ContentType:  "application/json",
		Type:         event.Type,
		MessageId:    event.OrderID.String() + ":" + event.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannel(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		// Closed before the notification arrived; retry once on a new channel.
		p.drop()
		if err = p.ensureChannel(); err == nil {
			err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	p.logger.Debug().
		Str("type", event.Type).
		Str("order_id", event.OrderID.String()).
		Msg("event published")

	return nil
}

// Close closes the channel and the connection. Later publishes fail.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.shut = true

	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.conn, p.channel, p.closed = nil, nil, nil
	return firstErr
}
