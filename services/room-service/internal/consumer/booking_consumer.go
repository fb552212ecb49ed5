package consumer

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/events"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/mq"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/service"
)

// BookingConsumer keeps room occupancy in sync with the booking lifecycle.
type BookingConsumer struct {
	svc  *service.RoomSvc
	cons *mq.Consumer
	log  *logrus.Entry
}

func NewBookingConsumer(svc *service.RoomSvc, cons *mq.Consumer, log *logrus.Entry) *BookingConsumer {
	return &BookingConsumer{svc: svc, cons: cons, log: log}
}

func (bc *BookingConsumer) Run(ctx context.Context) error {
	msgs, err := bc.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	go func() {
		for d := range msgs {
			bc.handle(ctx, d)
		}
	}()
	return nil
}

func (bc *BookingConsumer) handle(ctx context.Context, d amqp.Delivery) {
	key := mq.RoutingKey(d)
	var err error
	switch key {
	case events.RKBookingCreated:
		var ev events.BookingCreated
		if ev, _, err = events.Decode[events.BookingCreated](d.Body); err == nil {
			err = bc.svc.OnBookingCreated(ctx, ev.BookingID, ev.Details)
		}
	case events.RKBookingCanceled:
		var ev events.BookingCanceled
		if ev, _, err = events.Decode[events.BookingCanceled](d.Body); err == nil {
			err = bc.svc.OnBookingCanceled(ctx, ev.BookingID, ev.RoomIDs)
		}
	default:
		_ = d.Ack(false)
		return
	}

	if err == nil {
		_ = d.Ack(false)
		return
	}
	if bc.cons.Reject(ctx, d) {
		bc.log.WithError(err).WithField("key", key).Error("retry budget exhausted, dead-lettered")
	} else {
		bc.log.WithError(err).WithField("key", key).Warn("handler failed, retry scheduled")
	}
}
