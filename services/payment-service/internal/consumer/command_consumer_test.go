package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/events"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/logging"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/domain"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/repository"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/service"
)

type fakeRepo struct {
	payments  map[string]*domain.Payment
	createErr error
}

func newFakeRepo() *fakeRepo { return &fakeRepo{payments: map[string]*domain.Payment{}} }

func (r *fakeRepo) Create(_ context.Context, p *domain.Payment) error {
	if r.createErr != nil {
		return r.createErr
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakeRepo) ByID(_ context.Context, id string) (*domain.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) ByBookingID(_ context.Context, bookingID string) (*domain.Payment, error) {
	for _, p := range r.payments {
		if p.BookingID == bookingID {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRepo) PendingByReference(_ context.Context, _ string) (*domain.Payment, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeRepo) MarkStatus(_ context.Context, _, _, _ string) (*domain.Payment, bool, error) {
	return nil, false, repository.ErrNotFound
}

type noopPub struct{}

func (noopPub) PublishEvent(context.Context, string, string, any) error { return nil }

type ackRecorder struct {
	acks    int
	requeue []bool
}

func (a *ackRecorder) Ack(uint64, bool) error    { a.acks++; return nil }
func (a *ackRecorder) Reject(uint64, bool) error { return nil }
func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.requeue = append(a.requeue, requeue)
	return nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, cmd events.CreatePaymentCommand) amqp.Delivery {
	t.Helper()
	b, err := json.Marshal(cmd)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: b}
}

func newConsumer(repo *fakeRepo) *CommandConsumer {
	svc := service.NewPaymentSvc(repo, noopPub{}, logging.New("payment-test"))
	return NewCommandConsumer(svc, nil, logging.New("payment-test"))
}

func TestHandleAcksCreatedPayment(t *testing.T) {
	repo := newFakeRepo()
	cc := newConsumer(repo)
	ack := &ackRecorder{}

	cc.handle(context.Background(), delivery(t, ack, events.CreatePaymentCommand{
		BookingID: uuid.NewString(), UserID: "u1", Amount: 1500, Method: "BANK_TRANSFER",
	}))
	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, ack.requeue)
	assert.Len(t, repo.payments, 1)
}

func TestHandleDeadLettersMalformedBody(t *testing.T) {
	cc := newConsumer(newFakeRepo())
	ack := &ackRecorder{}

	cc.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})
	assert.Equal(t, []bool{false}, ack.requeue)
	assert.Zero(t, ack.acks)
}

func TestHandleDeadLettersInvalidCommand(t *testing.T) {
	repo := newFakeRepo()
	cc := newConsumer(repo)
	ack := &ackRecorder{}

	// amount <= 0 can never succeed, requeueing it would loop forever
	cc.handle(context.Background(), delivery(t, ack, events.CreatePaymentCommand{
		BookingID: uuid.NewString(), Amount: 0,
	}))
	assert.Equal(t, []bool{false}, ack.requeue)
	assert.Empty(t, repo.payments)
}

func TestHandleRequeuesTransientFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("pq: connection reset")
	cc := newConsumer(repo)
	ack := &ackRecorder{}

	cc.handle(context.Background(), delivery(t, ack, events.CreatePaymentCommand{
		BookingID: uuid.NewString(), Amount: 1500,
	}))
	assert.Equal(t, []bool{true}, ack.requeue)
	assert.Zero(t, ack.acks)
}
