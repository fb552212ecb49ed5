package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MaxDeliveryAttempts bounds retries of failing messages. Once a message has
// been attempted this many times it is rejected without requeue and stays on
// the DLQ for manual inspection.
const MaxDeliveryAttempts = 5

// Retries are tracked with an explicit header on republish. A broker-side
// requeue does not touch headers, so counting has to happen here.
const (
	attemptsHeader  = "x-attempts"
	originKeyHeader = "x-origin-key"
)

type ConsumerConfig struct {
	URL       string
	Exchanges []string
	Queue     string
	Bindings  []string
	Prefetch  int
	DLXName   string
	DLXQueue  string
	Tag       string
}

// publisher is the slice of *amqp.Channel the retry path needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Consumer struct {
	cfg  ConsumerConfig
	conn *amqp.Connection
	ch   *amqp.Channel
	pub  publisher
}

func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	c := &Consumer{cfg: cfg}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Consumer) connect() error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	args := amqp.Table{}
	if c.cfg.DLXName != "" {
		args["x-dead-letter-exchange"] = c.cfg.DLXName
	}
	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, ex := range c.cfg.Exchanges {
		if err := ch.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
		for _, key := range c.cfg.Bindings {
			if err := ch.QueueBind(q.Name, key, ex, false, nil); err != nil {
				_ = ch.Close()
				_ = conn.Close()
				return fmt.Errorf("bind exchange=%s key=%s: %w", ex, key, err)
			}
		}
	}

	if c.cfg.DLXName != "" {
		if err := ch.ExchangeDeclare(c.cfg.DLXName, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare dlx: %w", err)
		}
		if _, err := ch.QueueDeclare(c.cfg.DLXQueue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare dlq: %w", err)
		}
		if err := ch.QueueBind(c.cfg.DLXQueue, "#", c.cfg.DLXName, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("bind dlq: %w", err)
		}
	}

	prefetch := c.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 8
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set qos: %w", err)
	}

	c.conn = conn
	c.ch = ch
	c.pub = ch
	return nil
}

func (c *Consumer) Deliveries(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.Tag, false, false, false, false, nil)
}

// DeliveryAttempts reads how many times d has been handed to a handler,
// counting the current attempt. First deliveries carry no header.
func DeliveryAttempts(d amqp.Delivery) int64 {
	switch v := d.Headers[attemptsHeader].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	}
	return 1
}

// RoutingKey returns the key the message was originally published with. A
// retried message travels through the default exchange, which overwrites
// d.RoutingKey with the queue name, so the original key rides in a header.
func RoutingKey(d amqp.Delivery) string {
	if k, ok := d.Headers[originKeyHeader].(string); ok && k != "" {
		return k
	}
	return d.RoutingKey
}

// Reject retries d by republishing it to the queue with an incremented
// attempt count, or rejects it onto the DLX once the budget is spent.
// Returns true when the message was dead-lettered instead of retried.
func (c *Consumer) Reject(ctx context.Context, d amqp.Delivery) bool {
	attempts := DeliveryAttempts(d)
	if attempts >= MaxDeliveryAttempts {
		_ = d.Nack(false, false)
		return true
	}

	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[attemptsHeader] = attempts + 1
	headers[originKeyHeader] = RoutingKey(d)

	err := c.pub.PublishWithContext(ctx, "", c.cfg.Queue, false, false, amqp.Publishing{
		ContentType:   d.ContentType,
		CorrelationId: d.CorrelationId,
		DeliveryMode:  amqp.Persistent,
		Headers:       headers,
		Body:          d.Body,
	})
	if err != nil {
		// could not republish; hand it back to the broker uncounted
		_ = d.Nack(false, true)
		return false
	}
	_ = d.Ack(false)
	return false
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
