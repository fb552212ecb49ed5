package consumer

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/events"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/mq"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/service"
)

// CommandConsumer processes payment-creation commands from the durable
// point-to-point queue. Creation is idempotent per booking, so requeued
// commands are safe.
type CommandConsumer struct {
	svc   *service.PaymentSvc
	queue *mq.CommandQueue
	log   *logrus.Entry
}

func NewCommandConsumer(svc *service.PaymentSvc, queue *mq.CommandQueue, log *logrus.Entry) *CommandConsumer {
	return &CommandConsumer{svc: svc, queue: queue, log: log}
}

func (cc *CommandConsumer) Run(ctx context.Context) error {
	msgs, err := cc.queue.Deliveries(ctx, "payment-service")
	if err != nil {
		return err
	}
	go func() {
		for d := range msgs {
			cc.handle(ctx, d)
		}
	}()
	return nil
}

func (cc *CommandConsumer) handle(ctx context.Context, d amqp.Delivery) {
	var cmd events.CreatePaymentCommand
	if err := json.Unmarshal(d.Body, &cmd); err != nil {
		cc.log.WithError(err).Error("malformed create-payment command, dead-lettered")
		_ = d.Nack(false, false)
		return
	}
	if _, err := cc.svc.CreatePayment(ctx, cmd); err != nil {
		// Validation and Conflict cannot succeed on redelivery; only
		// transient failures earn a requeue.
		switch apperr.KindOf(err) {
		case apperr.Validation, apperr.Conflict:
			cc.log.WithError(err).WithField("booking_id", cmd.BookingID).Error("create payment rejected, dead-lettered")
			_ = d.Nack(false, false)
		default:
			cc.log.WithError(err).WithField("booking_id", cmd.BookingID).Warn("create payment failed, requeued")
			_ = d.Nack(false, true)
		}
		return
	}
	_ = d.Ack(false)
}
