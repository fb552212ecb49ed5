package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/events"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/mq"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/domain"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/repository"
)

const maxReferenceAttempts = 3

type PaymentSvc struct {
	repo repository.PaymentRepository
	pub  mq.EventPublisher
	log  *logrus.Entry
}

func NewPaymentSvc(r repository.PaymentRepository, pub mq.EventPublisher, log *logrus.Entry) *PaymentSvc {
	return &PaymentSvc{repo: r, pub: pub, log: log}
}

// CreatePayment persists a PENDING payment for the booking with a generated
// bank-transfer reference and QR payload. Redelivered commands return the
// existing payment.
func (s *PaymentSvc) CreatePayment(ctx context.Context, cmd events.CreatePaymentCommand) (*domain.Payment, error) {
	if cmd.BookingID == "" || cmd.Amount <= 0 {
		return nil, apperr.Validationf("booking_id and positive amount required")
	}
	if existing, err := s.repo.ByBookingID(ctx, cmd.BookingID); err == nil {
		s.log.WithField("booking_id", cmd.BookingID).Info("payment already exists, returning it")
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	ref := ReferenceFromBookingID(cmd.BookingID)
	for attempt := 0; ; attempt++ {
		qrURL, err := qrImageDataURL(ref, cmd.Amount)
		if err != nil {
			return nil, err
		}
		p := &domain.Payment{
			BookingID:  cmd.BookingID,
			UserID:     cmd.UserID,
			Amount:     cmd.Amount,
			Method:     cmd.Method,
			Status:     domain.StatusPending,
			Reference:  ref,
			QRImageURL: qrURL,
			PaymentURL: qrPayload(ref, cmd.Amount),
		}
		err = s.repo.Create(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrReferenceTaken) {
			return nil, err
		}
		if attempt+1 >= maxReferenceAttempts {
			return nil, apperr.Wrap(apperr.Conflict, "reference collision persisted", err)
		}
		s.log.WithField("reference", ref).Warn("reference collision, regenerating")
		ref = freshReference()
	}
}

// MarkStatus applies a monotonic status write and publishes the matching
// lifecycle event. reason only applies to refunds.
func (s *PaymentSvc) MarkStatus(ctx context.Context, paymentID, to, transactionID, reason string) (*domain.Payment, error) {
	p, changed, err := s.repo.MarkStatus(ctx, paymentID, to, transactionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFoundf("payment %s", paymentID)
	}
	if errors.Is(err, repository.ErrInvalidTransition) {
		return nil, apperr.Wrap(apperr.Conflict, "status "+to+" unreachable", err)
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		s.log.WithFields(logrus.Fields{"payment_id": paymentID, "status": p.Status}).
			Info("status write skipped, already applied")
		return p, nil
	}

	switch to {
	case domain.StatusSuccess:
		s.publish(ctx, events.RKPaymentSuccess, p.ID, events.PaymentSuccess{
			PaymentID:     p.ID,
			BookingID:     p.BookingID,
			Amount:        p.Amount,
			Status:        p.Status,
			TransactionID: p.TransactionID,
			Reference:     p.Reference,
		})
	case domain.StatusFailed:
		s.publish(ctx, events.RKPaymentFailed, p.ID, events.PaymentFailed{
			PaymentID: p.ID,
			BookingID: p.BookingID,
			Amount:    p.Amount,
			Status:    p.Status,
			Reference: p.Reference,
		})
	case domain.StatusRefunded:
		s.publish(ctx, events.RKPaymentRefunded, p.ID, events.PaymentRefunded{
			PaymentID:    p.ID,
			BookingID:    p.BookingID,
			RefundAmount: p.Amount,
			Reason:       reason,
		})
	}
	return p, nil
}

// VerifyFromReference resolves a mailbox (or manual) confirmation against
// the unique PENDING payment carrying ref. No match is not an error: the
// mail may be unrelated or the payment already processed. An amount mismatch
// is logged but does not block confirmation.
func (s *PaymentSvc) VerifyFromReference(ctx context.Context, ref string, observedAmount int64) (*domain.Payment, bool, error) {
	p, err := s.repo.PendingByReference(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if observedAmount != p.Amount {
		s.log.WithFields(logrus.Fields{
			"payment_id": p.ID,
			"reference":  ref,
			"expected":   p.Amount,
			"observed":   observedAmount,
		}).Warn("amount mismatch on confirmation, accepting anyway")
	}
	p, err = s.MarkStatus(ctx, p.ID, domain.StatusSuccess, "", "")
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (s *PaymentSvc) Get(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := s.repo.ByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFoundf("payment %s", id)
	}
	return p, err
}

func (s *PaymentSvc) GetByBooking(ctx context.Context, bookingID string) (*domain.Payment, error) {
	p, err := s.repo.ByBookingID(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFoundf("payment for booking %s", bookingID)
	}
	return p, err
}

func (s *PaymentSvc) publish(ctx context.Context, key, correlationID string, data any) {
	if err := s.pub.PublishEvent(ctx, key, correlationID, data); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("publish failed")
	}
}
