// internal/messaging/consumer.go
package messaging

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	maxConnectAttempts = 5
	baseRetryDelay     = time.Second
)

// ConsumerSpec describes one logical consumer: its queue, its binding, and
// the handler its messages run through.
type ConsumerSpec struct {
	Name       string
	Queue      string
	RoutingKey string
	DeadLetter bool
	Handler    Handler
}

// Consumer runs one consume loop on its own goroutine with an exclusive
// broker connection. Connection-level failures trigger a bounded
// exponential-backoff retry; exhausting the retries stops this consumer
// only, never the process.
type Consumer struct {
	cfg    Config
	spec   ConsumerSpec
	logger *logrus.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewConsumer(cfg Config, spec ConsumerSpec, logger *logrus.Logger) *Consumer {
	return &Consumer{cfg: cfg, spec: spec, logger: logger}
}

// Start launches the consume loop. Safe to call once.
func (c *Consumer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

// Stop signals the loop and waits up to timeout for it to exit. A loop that
// doesn't stop in time is abandoned rather than force-killed.
func (c *Consumer) Stop(timeout time.Duration) {
	if c.cancel == nil {
		return
	}
	c.cancel()
	select {
	case <-c.done:
	case <-time.After(timeout):
		c.logger.Warnf("Consumer %s did not stop within %s, abandoning", c.spec.Name, timeout)
	}
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	for attempt := 0; attempt < maxConnectAttempts; attempt++ {
		err := c.consumeOnce(ctx)
		if ctx.Err() != nil {
			c.logger.Infof("Consumer %s stopped", c.spec.Name)
			return
		}
		delay := baseRetryDelay << attempt
		c.logger.WithError(err).Errorf("Consumer %s failed (attempt %d/%d), retrying in %s",
			c.spec.Name, attempt+1, maxConnectAttempts, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
	// Other consumers keep running; this one is done for good.
	c.logger.Errorf("Consumer %s gave up after %d attempts", c.spec.Name, maxConnectAttempts)
}

// consumeOnce dials a fresh exclusive connection, declares the queue and
// binding, and blocks consuming until failure or shutdown.
func (c *Consumer) consumeOnce(ctx context.Context) error {
	client, err := Dial(c.cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeclareAndBind(c.spec.Queue, c.spec.RoutingKey, c.spec.DeadLetter); err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"consumer":    c.spec.Name,
		"queue":       c.spec.Queue,
		"routing_key": c.spec.RoutingKey,
	}).Info("Consuming queue")
	return client.Consume(ctx, c.spec.Queue, c.spec.Handler)
}
