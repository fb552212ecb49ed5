package consumer

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/events"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/mq"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/repository"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/service"
)

// PaymentConsumer reacts to payment outcomes and room deletions. Handlers
// are idempotent, so redelivery after a nack is safe.
type PaymentConsumer struct {
	svc  *service.BookingSvc
	cons *mq.Consumer
	log  *logrus.Entry
}

func NewPaymentConsumer(svc *service.BookingSvc, cons *mq.Consumer, log *logrus.Entry) *PaymentConsumer {
	return &PaymentConsumer{svc: svc, cons: cons, log: log}
}

func (pc *PaymentConsumer) Run(ctx context.Context) error {
	msgs, err := pc.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	go func() {
		for d := range msgs {
			pc.handle(ctx, d)
		}
	}()
	return nil
}

func (pc *PaymentConsumer) handle(ctx context.Context, d amqp.Delivery) {
	key := mq.RoutingKey(d)
	var err error
	switch key {
	case events.RKPaymentSuccess:
		var ev events.PaymentSuccess
		if ev, _, err = events.Decode[events.PaymentSuccess](d.Body); err == nil {
			err = pc.svc.HandlePaymentSucceeded(ctx, ev.BookingID, ev.PaymentID)
		}
	case events.RKPaymentFailed:
		var ev events.PaymentFailed
		if ev, _, err = events.Decode[events.PaymentFailed](d.Body); err == nil {
			err = pc.svc.HandlePaymentFailed(ctx, ev.BookingID, ev.PaymentID)
		}
	case events.RKPaymentRefunded:
		var ev events.PaymentRefunded
		if ev, _, err = events.Decode[events.PaymentRefunded](d.Body); err == nil {
			err = pc.svc.HandlePaymentRefunded(ctx, ev.BookingID, ev.PaymentID)
		}
	case events.RKRoomDeleted:
		var ev events.RoomDeleted
		if ev, _, err = events.Decode[events.RoomDeleted](d.Body); err == nil {
			err = pc.svc.HandleRoomDeleted(ctx, ev.RoomID)
		}
	default:
		_ = d.Ack(false)
		return
	}

	if err == nil {
		_ = d.Ack(false)
		return
	}
	// A missing booking will not appear on redelivery either.
	if errors.Is(err, repository.ErrNotFound) || apperr.IsKind(err, apperr.NotFound) {
		pc.log.WithError(err).WithField("key", key).Info("skipping event for missing booking")
		_ = d.Ack(false)
		return
	}
	if pc.cons.Reject(ctx, d) {
		pc.log.WithError(err).WithField("key", key).Error("retry budget exhausted, dead-lettered")
	} else {
		pc.log.WithError(err).WithField("key", key).Warn("handler failed, retry scheduled")
	}
}
