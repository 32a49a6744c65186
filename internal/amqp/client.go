// Package amqp publishes and consumes collection saved events on RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"budgetfamille/internal/log"
	"budgetfamille/internal/resilience"
)

const (
	publishTimeout = 5 * time.Second
	dialTimeout    = 10 * time.Second
	heartbeat      = 10 * time.Second
	maxBackoff     = 30 * time.Second
)

// Client owns one connection and channel and re-dials them when the broker
// drops the connection.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	dial    func(ctx context.Context, url string) (*amqp091.Connection, error)
	breaker *gobreaker.CircuitBreaker

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

type Option func(*Client)

// WithBreakerObserver reports publish breaker state changes.
func WithBreakerObserver(observe resilience.StateObserver) Option {
	return func(c *Client) {
		c.breaker = resilience.NewCircuitBreaker("amqp_publish", 15*time.Second, observe)
	}
}

func newClient(url, exchangeName, queueName string, opts ...Option) *Client {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		dial:         dialContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewCircuitBreaker("amqp_publish", 15*time.Second, nil)
	}
	return c
}

// NewClient connects and declares the exchange, queue and binding.
func NewClient(url, exchangeName, queueName string, opts ...Option) (*Client, error) {
	c := newClient(url, exchangeName, queueName, opts...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// dialContext dials url with the TCP connect and the AMQP handshake bounded
// by ctx, capped at dialTimeout. The library clears the deadline once the
// connection is open.
func dialContext(ctx context.Context, url string) (*amqp091.Connection, error) {
	deadline := time.Now().Add(dialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return amqp091.DialConfig(url, amqp091.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			dialer := net.Dialer{Deadline: deadline}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if err := conn.SetDeadline(deadline); err != nil {
				conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

func (c *Client) connectLocked(ctx context.Context) error {
	conn, err := c.dial(ctx, c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn, c.channel = conn, channel
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// Direct exchange: the routing key is the queue name.
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// channelLocked returns a live channel, reconnecting if needed.
func (c *Client) channelLocked(ctx context.Context) (*amqp091.Channel, error) {
	if c.channel != nil && !c.channel.IsClosed() && c.conn != nil && !c.conn.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()
	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	return c.channel, nil
}

// PublishCollectionSaved sends msg through the circuit breaker. When the
// breaker is open the call fails fast with gobreaker.ErrOpenState.
func (c *Client) PublishCollectionSaved(ctx context.Context, msg *CollectionSavedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.publish(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("publish %s saved: %w", msg.Key, err)
	}

	slog.DebugContext(ctx, "Published collection saved message",
		log.FieldComponent, log.ComponentAMQP,
		"key", msg.Key,
		"count", msg.Count,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.channelLocked(ctx)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil && isConnectionError(err) {
		c.closeLocked()
	}
	return err
}

// Handler processes one message. Returning an error requeues it.
type Handler func(ctx context.Context, msg *CollectionSavedMessage) error

// ConsumeCollectionSaved blocks until ctx is done, re-dialing with
// exponential backoff whenever the delivery channel closes.
func (c *Client) ConsumeCollectionSaved(ctx context.Context, handler Handler) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP consumer interrupted, reconnecting",
			log.FieldComponent, log.ComponentAMQP,
			"error", err,
			"retry_in", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler Handler, connected func()) error {
	c.mu.Lock()
	ch, err := c.channelLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	deliveries, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()
	slog.InfoContext(ctx, "Consuming collection saved messages", log.FieldComponent, log.ComponentAMQP, "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				c.mu.Lock()
				c.closeLocked()
				c.mu.Unlock()
				return errors.New("delivery channel closed")
			}
			c.handleDelivery(ctx, d, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler Handler) {
	msg, err := CollectionSavedMessageFromJSON(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping unreadable message", log.FieldComponent, log.ComponentAMQP, "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message",
			log.FieldComponent, log.ComponentAMQP,
			"key", msg.Key,
			"error", err)
		// Redelivered messages are dropped to avoid a hot loop; the
		// periodic resync covers them.
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
