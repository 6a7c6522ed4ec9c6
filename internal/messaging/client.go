// internal/messaging/client.go

// Package messaging wraps the AMQP broker. The underlying client library is
// not safe to share across goroutines, so every consumer owns an exclusive
// Client; only the publisher Client is long-lived, and it is guarded by a
// mutex.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config identifies the broker, the shared topic exchange, and the
// dead-letter pair attached to consumer queues.
type Config struct {
	URL                  string
	Exchange             string
	DeadLetterExchange   string
	DeadLetterRoutingKey string
}

// Handler processes one decoded message. Returning an error requeues the
// message; handlers must swallow (and log) non-retryable failures themselves
// so poison messages don't loop forever.
type Handler func(ctx context.Context, event map[string]interface{}) error

// Client is one connection plus one channel to the broker.
type Client struct {
	cfg  Config
	conn *amqp.Connection
	ch   *amqp.Channel

	mu sync.Mutex // serializes publishes; channel writes are not goroutine-safe
}

// Dial connects and declares the shared topic exchange.
func Dial(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	return &Client{cfg: cfg, conn: conn, ch: ch}, nil
}

func (c *Client) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// Publish sends a persistent JSON message to the topic exchange.
func (c *Client) Publish(ctx context.Context, routingKey string, event map[string]interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.ch.PublishWithContext(ctx, c.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// DeclareAndBind declares a durable queue bound to routingKey on the shared
// exchange. With deadLetter set, exhausted messages divert to the DLQ
// instead of being dropped.
func (c *Client) DeclareAndBind(queue, routingKey string, deadLetter bool) error {
	var args amqp.Table
	if deadLetter {
		if err := c.declareDeadLetter(); err != nil {
			return err
		}
		args = amqp.Table{
			"x-dead-letter-exchange":    c.cfg.DeadLetterExchange,
			"x-dead-letter-routing-key": c.cfg.DeadLetterRoutingKey,
		}
	}
	if _, err := c.ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := c.ch.QueueBind(queue, routingKey, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", queue, routingKey, err)
	}
	return nil
}

// declareDeadLetter sets up the DLX and its queue so diverted messages have
// somewhere to land even when this service starts first.
func (c *Client) declareDeadLetter() error {
	if err := c.ch.ExchangeDeclare(c.cfg.DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}
	if _, err := c.ch.QueueDeclare(c.cfg.DeadLetterRoutingKey, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}
	if err := c.ch.QueueBind(c.cfg.DeadLetterRoutingKey, c.cfg.DeadLetterRoutingKey, c.cfg.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}
	return nil
}

// Consume receives from queue with explicit acknowledgment until ctx is
// canceled or the connection drops. Undecodable messages are rejected
// without requeue; handler errors requeue the message.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler) error {
	deliveries, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming %s: %w", queue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", queue)
			}
			var event map[string]interface{}
			if err := json.Unmarshal(d.Body, &event); err != nil {
				d.Reject(false)
				continue
			}
			if err := handler(ctx, event); err != nil {
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}
}
