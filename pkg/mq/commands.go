package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// CommandSender enqueues point-to-point commands; tests substitute a fake.
type CommandSender interface {
	Send(ctx context.Context, v any) error
}

// CommandQueue is a durable point-to-point queue for service-to-service
// commands (booking -> payment create requests). Unlike the topic exchanges
// it publishes straight to the queue via the default exchange.
type CommandQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewCommandQueue(url, queue string) (*CommandQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	// Poison commands (malformed or permanently rejected) are parked on a
	// per-queue DLQ instead of being dropped or requeued forever.
	dlx := queue + ".dlx"
	args := amqp.Table{"x-dead-letter-exchange": dlx}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.ExchangeDeclare(dlx, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare dlx: %w", err)
	}
	if _, err := ch.QueueDeclare(queue+".dlq", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare dlq: %w", err)
	}
	if err := ch.QueueBind(queue+".dlq", "#", dlx, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("bind dlq: %w", err)
	}
	return &CommandQueue{conn: conn, ch: ch, queue: queue}, nil
}

func (q *CommandQueue) Send(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         b,
	})
}

func (q *CommandQueue) Deliveries(ctx context.Context, tag string) (<-chan amqp.Delivery, error) {
	if err := q.ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return q.ch.ConsumeWithContext(ctx, q.queue, tag, false, false, false, false, nil)
}

func (q *CommandQueue) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
