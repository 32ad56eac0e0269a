package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange events are published to when none is configured.
const DefaultExchange = "camp.events"

const (
	defaultDialTimeout   = 2 * time.Second
	defaultRedialBackoff = 15 * time.Second
)

// ErrBrokerUnavailable is returned without dialling while a recent connection
// attempt is still backing off.
var ErrBrokerUnavailable = errors.New("events: broker unavailable")

// AMQPPublisher publishes events to a durable topic exchange on RabbitMQ. The
// connection is opened lazily and re-dialled after the broker closes it. Dialling
// honours the caller's context and is bounded by a short timeout; after a failed
// attempt publishes fail fast until the backoff elapses.
type AMQPPublisher struct {
	url      string
	exchange string
	logger   *slog.Logger

	dialTimeout   time.Duration
	redialBackoff time.Duration
	dial          func(ctx context.Context) (*amqp.Connection, error)
	now           func() time.Time

	mu          sync.Mutex
	conn        *amqp.Connection
	channel     *amqp.Channel
	retryAfter  time.Time
	lastDialErr error
}

// NewAMQPPublisher constructs a publisher for url. No connection is made until
// the first Publish.
func NewAMQPPublisher(url, exchange string, logger *slog.Logger) *AMQPPublisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &AMQPPublisher{
		url:           url,
		exchange:      exchange,
		logger:        logger,
		dialTimeout:   defaultDialTimeout,
		redialBackoff: defaultRedialBackoff,
		now:           time.Now,
	}
	p.dial = p.dialBroker
	return p
}

func (p *AMQPPublisher) dialBroker(ctx context.Context) (*amqp.Connection, error) {
	timeout := p.dialTimeout
	return amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			dialCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			conn, err := (&net.Dialer{}).DialContext(dialCtx, network, addr)
			if err != nil {
				return nil, err
			}
			// Bounds the AMQP handshake; the library clears it once the connection is open.
			if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

// Publish sends event as a persistent JSON message routed by its name.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := encode(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked(ctx)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.Name,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, event.Name, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("events: publish %s: %w", event.Name, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resetLocked()
}

func (p *AMQPPublisher) channelLocked(ctx context.Context) (*amqp.Channel, error) {
	if p.channel != nil && !p.channel.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.channel, nil
	}
	p.resetLocked()

	if now := p.now(); now.Before(p.retryAfter) {
		return nil, fmt.Errorf("%w: retrying after %s: %w", ErrBrokerUnavailable, p.retryAfter.Format(time.RFC3339), p.lastDialErr)
	}
	conn, err := p.dial(ctx)
	if err != nil {
		// A caller that gave up says nothing about the broker.
		if ctx.Err() == nil {
			p.retryAfter = p.now().Add(p.redialBackoff)
			p.lastDialErr = err
		}
		return nil, fmt.Errorf("events: dial: %w", err)
	}
	p.retryAfter = time.Time{}
	p.lastDialErr = nil
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: declare exchange %s: %w", p.exchange, err)
	}

	p.conn = conn
	p.channel = ch
	p.logger.Info("connected to event broker", "exchange", p.exchange)
	return ch, nil
}

func (p *AMQPPublisher) resetLocked() error {
	var errs []error
	if p.channel != nil && !p.channel.IsClosed() {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	p.channel = nil
	p.conn = nil
	return errors.Join(errs...)
}
