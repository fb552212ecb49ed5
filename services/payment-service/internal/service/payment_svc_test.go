package service

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/events"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/logging"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/domain"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/repository"
)

type fakePaymentRepo struct {
	payments map[string]*domain.Payment
	// references forced to collide on Create, decremented per attempt
	collisions int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[string]*domain.Payment{}}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *domain.Payment) error {
	if r.collisions > 0 {
		r.collisions--
		return repository.ErrReferenceTaken
	}
	for _, existing := range r.payments {
		if existing.Reference == p.Reference && existing.Status == domain.StatusPending {
			return repository.ErrReferenceTaken
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) ByID(_ context.Context, id string) (*domain.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) ByBookingID(_ context.Context, bookingID string) (*domain.Payment, error) {
	for _, p := range r.payments {
		if p.BookingID == bookingID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePaymentRepo) PendingByReference(_ context.Context, ref string) (*domain.Payment, error) {
	for _, p := range r.payments {
		if p.Reference == ref && p.Status == domain.StatusPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePaymentRepo) MarkStatus(_ context.Context, id, to, transactionID string) (*domain.Payment, bool, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if p.Status == to {
		cp := *p
		return &cp, false, nil
	}
	if !domain.CanTransition(p.Status, to) {
		return nil, false, repository.ErrInvalidTransition
	}
	p.Status = to
	if transactionID != "" {
		p.TransactionID = transactionID
	}
	if to == domain.StatusSuccess {
		now := time.Now().UTC()
		p.PaymentDate = &now
	}
	cp := *p
	return &cp, true, nil
}

type fakePub struct {
	keys     []string
	payloads []any
}

func (p *fakePub) PublishEvent(_ context.Context, key, _ string, data any) error {
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, data)
	return nil
}

func newTestSvc() (*PaymentSvc, *fakePaymentRepo, *fakePub) {
	repo := newFakePaymentRepo()
	pub := &fakePub{}
	return NewPaymentSvc(repo, pub, logging.New("payment-test")), repo, pub
}

func TestReferenceFromBookingID(t *testing.T) {
	ref := ReferenceFromBookingID("A1B2C3D4-0000-0000-0000-000000000000")
	assert.Equal(t, "BOOKING_a1b2c3d4", ref)
	assert.Regexp(t, regexp.MustCompile(`^BOOKING_[0-9a-f]{8}$`), freshReference())
}

func TestCreatePayment(t *testing.T) {
	bookingID := uuid.NewString()
	cmd := events.CreatePaymentCommand{
		BookingID: bookingID, UserID: "u1", Amount: 1500, Method: "BANK_TRANSFER",
	}

	t.Run("persists pending payment with reference and qr", func(t *testing.T) {
		svc, _, _ := newTestSvc()
		p, err := svc.CreatePayment(context.Background(), cmd)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, p.Status)
		assert.Equal(t, "BOOKING_"+strings.ToLower(bookingID[:8]), p.Reference)
		assert.True(t, strings.HasPrefix(p.QRImageURL, "data:image/png;base64,"))
		assert.Equal(t, p.Reference+"|1500", p.PaymentURL)
	})

	t.Run("redelivered command returns the existing payment", func(t *testing.T) {
		svc, _, _ := newTestSvc()
		first, err := svc.CreatePayment(context.Background(), cmd)
		require.NoError(t, err)
		second, err := svc.CreatePayment(context.Background(), cmd)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("regenerates reference on collision", func(t *testing.T) {
		svc, repo, _ := newTestSvc()
		repo.collisions = 1
		p, err := svc.CreatePayment(context.Background(), cmd)
		require.NoError(t, err)
		assert.NotEqual(t, ReferenceFromBookingID(bookingID), p.Reference)
	})

	t.Run("gives up after persistent collisions", func(t *testing.T) {
		svc, repo, _ := newTestSvc()
		repo.collisions = 10
		_, err := svc.CreatePayment(context.Background(), cmd)
		require.Error(t, err)
		assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	})

	t.Run("rejects missing booking or amount", func(t *testing.T) {
		svc, _, _ := newTestSvc()
		_, err := svc.CreatePayment(context.Background(), events.CreatePaymentCommand{Amount: 100})
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		_, err = svc.CreatePayment(context.Background(), events.CreatePaymentCommand{BookingID: "b1"})
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	})
}

func TestMarkStatus(t *testing.T) {
	seed := func(repo *fakePaymentRepo, status string) *domain.Payment {
		p := &domain.Payment{
			ID: uuid.NewString(), BookingID: "b1", Amount: 1500,
			Status: status, Reference: "BOOKING_a1b2c3d4",
		}
		repo.payments[p.ID] = p
		return p
	}

	t.Run("success publishes payment.success with transaction", func(t *testing.T) {
		svc, repo, pub := newTestSvc()
		p := seed(repo, domain.StatusPending)

		got, err := svc.MarkStatus(context.Background(), p.ID, domain.StatusSuccess, "tx-9", "")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuccess, got.Status)
		assert.Equal(t, "tx-9", got.TransactionID)
		assert.NotNil(t, got.PaymentDate)

		require.Equal(t, []string{events.RKPaymentSuccess}, pub.keys)
		payload := pub.payloads[0].(events.PaymentSuccess)
		assert.Equal(t, p.ID, payload.PaymentID)
		assert.Equal(t, "b1", payload.BookingID)
		assert.Equal(t, int64(1500), payload.Amount)
	})

	t.Run("duplicate write is silent and publishes nothing", func(t *testing.T) {
		svc, repo, pub := newTestSvc()
		p := seed(repo, domain.StatusPending)

		_, err := svc.MarkStatus(context.Background(), p.ID, domain.StatusSuccess, "tx-9", "")
		require.NoError(t, err)
		_, err = svc.MarkStatus(context.Background(), p.ID, domain.StatusSuccess, "tx-9", "")
		require.NoError(t, err)
		assert.Len(t, pub.keys, 1)
	})

	t.Run("failed publishes payment.failed", func(t *testing.T) {
		svc, repo, pub := newTestSvc()
		p := seed(repo, domain.StatusPending)

		_, err := svc.MarkStatus(context.Background(), p.ID, domain.StatusFailed, "", "")
		require.NoError(t, err)
		require.Equal(t, []string{events.RKPaymentFailed}, pub.keys)
	})

	t.Run("refund only from success", func(t *testing.T) {
		svc, repo, pub := newTestSvc()
		pending := seed(repo, domain.StatusPending)

		_, err := svc.MarkStatus(context.Background(), pending.ID, domain.StatusRefunded, "", "changed plans")
		require.Error(t, err)
		assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

		paid := seed(repo, domain.StatusSuccess)
		got, err := svc.MarkStatus(context.Background(), paid.ID, domain.StatusRefunded, "", "changed plans")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefunded, got.Status)
		payload := pub.payloads[len(pub.payloads)-1].(events.PaymentRefunded)
		assert.Equal(t, "changed plans", payload.Reason)
		assert.Equal(t, int64(1500), payload.RefundAmount)
	})

	t.Run("unknown payment", func(t *testing.T) {
		svc, _, _ := newTestSvc()
		_, err := svc.MarkStatus(context.Background(), "missing", domain.StatusSuccess, "", "")
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	})
}

func TestVerifyFromReference(t *testing.T) {
	seed := func(repo *fakePaymentRepo) *domain.Payment {
		p := &domain.Payment{
			ID: uuid.NewString(), BookingID: "b1", Amount: 1500,
			Status: domain.StatusPending, Reference: "BOOKING_a1b2c3d4",
		}
		repo.payments[p.ID] = p
		return p
	}

	t.Run("matching reference confirms the payment", func(t *testing.T) {
		svc, repo, pub := newTestSvc()
		seed(repo)

		p, matched, err := svc.VerifyFromReference(context.Background(), "BOOKING_a1b2c3d4", 1500)
		require.NoError(t, err)
		assert.True(t, matched)
		assert.Equal(t, domain.StatusSuccess, p.Status)
		assert.Equal(t, []string{events.RKPaymentSuccess}, pub.keys)
	})

	t.Run("unknown reference is not an error", func(t *testing.T) {
		svc, _, pub := newTestSvc()
		p, matched, err := svc.VerifyFromReference(context.Background(), "BOOKING_deadbeef", 1500)
		require.NoError(t, err)
		assert.False(t, matched)
		assert.Nil(t, p)
		assert.Empty(t, pub.keys)
	})

	t.Run("amount mismatch still confirms", func(t *testing.T) {
		svc, repo, _ := newTestSvc()
		seed(repo)

		p, matched, err := svc.VerifyFromReference(context.Background(), "BOOKING_a1b2c3d4", 999)
		require.NoError(t, err)
		assert.True(t, matched)
		assert.Equal(t, domain.StatusSuccess, p.Status)
	})

	t.Run("already confirmed payment no longer matches", func(t *testing.T) {
		svc, repo, _ := newTestSvc()
		p := seed(repo)
		p.Status = domain.StatusSuccess

		_, matched, err := svc.VerifyFromReference(context.Background(), "BOOKING_a1b2c3d4", 1500)
		require.NoError(t, err)
		assert.False(t, matched)
	})
}
