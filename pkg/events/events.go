package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Routing keys carried on the topic exchanges. Consumers bind with these
// exact keys; wildcard bindings (booking.*, payment.*) are used by the
// notification worker only.
const (
	RKBookingCreated  = "booking.created"
	RKBookingCanceled = "booking.canceled"

	RKPaymentSuccess  = "payment.success"
	RKPaymentFailed   = "payment.failed"
	RKPaymentRefunded = "payment.refunded"

	RKRoomDeleted = "room.deleted"
)

// Envelope wraps every published event. Delivery is at-least-once and may be
// out of order, so consumers key idempotency checks on CorrelationID plus
// EventType rather than trusting a single delivery.
type Envelope struct {
	EventType     string          `json:"event_type"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id"` // booking or payment id
	EmittedAt     string          `json:"emitted_at"`     // RFC3339
	Data          json.RawMessage `json:"data"`
}

func NewEnvelope(eventType, correlationID string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventType:     eventType,
		Version:       1,
		CorrelationID: correlationID,
		EmittedAt:     time.Now().UTC().Format(time.RFC3339),
		Data:          raw,
	}, nil
}

type BookingDetail struct {
	RoomID string `json:"room_id"`
	Price  int64  `json:"price"`
}

type BookingCreated struct {
	BookingID string          `json:"booking_id"`
	UserID    string          `json:"user_id"`
	Status    string          `json:"status"`
	StartDate string          `json:"start_date"` // RFC3339
	EndDate   string          `json:"end_date"`
	Details   []BookingDetail `json:"details"`
}

type BookingCanceled struct {
	BookingID string   `json:"booking_id"`
	UserID    string   `json:"user_id"`
	RoomIDs   []string `json:"room_ids"`
}

type PaymentSuccess struct {
	PaymentID     string `json:"payment_id"`
	BookingID     string `json:"booking_id"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reference     string `json:"reference"`
}

type PaymentFailed struct {
	PaymentID string `json:"payment_id"`
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
}

type PaymentRefunded struct {
	PaymentID    string `json:"payment_id"`
	BookingID    string `json:"booking_id"`
	RefundAmount int64  `json:"refund_amount"`
	Reason       string `json:"reason"`
}

type RoomDeleted struct {
	RoomID     string `json:"room_id"`
	BuildingID string `json:"building_id"`
}

// CreatePaymentCommand travels on the durable point-to-point queue from the
// booking service to the payment service.
type CreatePaymentCommand struct {
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
}

// Decode unmarshals an envelope and its typed payload in one step.
func Decode[T any](body []byte) (T, Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		var zero T
		return zero, Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	var t T
	if err := json.Unmarshal(env.Data, &t); err != nil {
		var zero T
		return zero, env, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return t, env, nil
}
