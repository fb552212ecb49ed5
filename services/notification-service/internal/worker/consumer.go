package worker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/events"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/mq"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/notification-service/internal/notifier"
)

type Worker struct {
	cons     *mq.Consumer
	notifier notifier.Notifier
	log      *logrus.Entry
}

func New(cons *mq.Consumer, n notifier.Notifier, log *logrus.Entry) *Worker {
	return &Worker{cons: cons, notifier: n, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.cons.Deliveries(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := w.handleDelivery(d); err != nil {
				if w.cons.Reject(ctx, d) {
					w.log.WithError(err).WithField("key", mq.RoutingKey(d)).Error("retry budget exhausted, dead-lettered")
				} else {
					w.log.WithError(err).WithField("key", mq.RoutingKey(d)).Warn("handle failed, retry scheduled")
				}
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (w *Worker) handleDelivery(d amqp.Delivery) error {
	key := mq.RoutingKey(d)
	subject, message, err := Render(key, d.Body)
	if err != nil {
		return err
	}
	if subject == "" {
		w.log.WithField("key", key).Info("skip unknown key")
		return nil
	}
	return w.notifier.Notify(subject, message)
}

// Render turns a lifecycle event into a human message. Unknown keys return
// empty subject.
func Render(key string, body []byte) (subject, message string, err error) {
	switch key {
	case events.RKBookingCreated:
		ev, _, err := events.Decode[events.BookingCreated](body)
		if err != nil {
			return "", "", err
		}
		return "📅 Booking Created",
			fmt.Sprintf("Booking %s (%d room(s)) %s → %s, awaiting payment.",
				ev.BookingID, len(ev.Details), ev.StartDate, ev.EndDate), nil

	case events.RKBookingCanceled:
		ev, _, err := events.Decode[events.BookingCanceled](body)
		if err != nil {
			return "", "", err
		}
		return "❌ Booking Canceled",
			fmt.Sprintf("Booking %s has been canceled.", ev.BookingID), nil

	case events.RKPaymentSuccess:
		ev, _, err := events.Decode[events.PaymentSuccess](body)
		if err != nil {
			return "", "", err
		}
		return "💰 Payment Received",
			fmt.Sprintf("Booking %s paid %d (ref=%s).", ev.BookingID, ev.Amount, ev.Reference), nil

	case events.RKPaymentFailed:
		ev, _, err := events.Decode[events.PaymentFailed](body)
		if err != nil {
			return "", "", err
		}
		return "⚠️ Payment Failed",
			fmt.Sprintf("Payment failed for booking %s (ref=%s).", ev.BookingID, ev.Reference), nil

	case events.RKPaymentRefunded:
		ev, _, err := events.Decode[events.PaymentRefunded](body)
		if err != nil {
			return "", "", err
		}
		return "↩️ Payment Refunded",
			fmt.Sprintf("Booking %s refunded %d. Reason: %s", ev.BookingID, ev.RefundAmount, ev.Reason), nil

	case events.RKRoomDeleted:
		ev, _, err := events.Decode[events.RoomDeleted](body)
		if err != nil {
			return "", "", err
		}
		return "🏚️ Room Removed",
			fmt.Sprintf("Room %s (building %s) was removed; affected bookings are being canceled.", ev.RoomID, ev.BuildingID), nil
	}
	return "", "", nil
}
