package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/cache"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/events"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/mq"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/clients"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/domain"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/repository"
)

type DetailInput struct {
	RoomID        string `json:"room_id" binding:"required"`
	Price         int64  `json:"price" binding:"required"`
	Note          string `json:"note"`
	DurationUnits int32  `json:"duration_units"`
}

// RoomReader is the cache-backed lookup into the room service.
type RoomReader interface {
	Get(ctx context.Context, id string) (*clients.RoomSnapshot, error)
}

// Invalidator drops stale cache snapshots after writes.
type Invalidator interface {
	Invalidate(ctx context.Context, key string)
}

type BookingSvc struct {
	repo  repository.BookingRepository
	pub   mq.EventPublisher
	cmds  mq.CommandSender
	rooms RoomReader
	inval Invalidator
	log   *logrus.Entry
}

func NewBookingSvc(r repository.BookingRepository, pub mq.EventPublisher, cmds mq.CommandSender, rooms RoomReader, inval Invalidator, log *logrus.Entry) *BookingSvc {
	return &BookingSvc{repo: r, pub: pub, cmds: cmds, rooms: rooms, inval: inval, log: log}
}

func parseRFC3339UTC(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Create validates the request, persists a PENDING booking, emits
// booking.created and enqueues the payment-creation command.
func (s *BookingSvc) Create(ctx context.Context, userID, startISO, endISO string, details []DetailInput) (*domain.Booking, error) {
	st, err := parseRFC3339UTC(startISO)
	if err != nil {
		return nil, apperr.Validationf("start_date: %v", err)
	}
	et, err := parseRFC3339UTC(endISO)
	if err != nil {
		return nil, apperr.Validationf("end_date: %v", err)
	}
	if !et.After(st) {
		return nil, apperr.Validationf("end_date must be after start_date")
	}
	if len(details) == 0 {
		return nil, apperr.Validationf("details must not be empty")
	}

	b := &domain.Booking{UserID: userID, Status: domain.StatusPending, StartDate: st, EndDate: et}
	for _, d := range details {
		if d.RoomID == "" || d.Price <= 0 {
			return nil, apperr.Validationf("detail requires room_id and positive price")
		}
		// Best-effort room check: a timeout or missing snapshot does not
		// block the booking, only maintenance rooms are rejected here.
		if room, err := s.rooms.Get(ctx, d.RoomID); err != nil {
			s.log.WithError(err).WithField("room_id", d.RoomID).Warn("room lookup degraded, proceeding")
		} else if room.Status == "MAINTENANCE" {
			return nil, apperr.Validationf("room %s is under maintenance", d.RoomID)
		}
		b.Details = append(b.Details, domain.BookingDetail{
			RoomID:        d.RoomID,
			Price:         d.Price,
			Note:          d.Note,
			DurationUnits: d.DurationUnits,
		})
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.publishCreated(ctx, b)
	if err := s.cmds.Send(ctx, events.CreatePaymentCommand{
		BookingID: b.ID,
		UserID:    b.UserID,
		Amount:    b.Amount(),
		Method:    "BANK_TRANSFER",
	}); err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Warn("enqueue payment command failed")
	}
	return b, nil
}

func (s *BookingSvc) Get(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.repo.ByID(ctx, id)
	if err == repository.ErrNotFound {
		return nil, apperr.NotFoundf("booking %s", id)
	}
	return b, err
}

func (s *BookingSvc) List(ctx context.Context, page, size int32, userID string) ([]domain.Booking, int64, error) {
	return s.repo.List(ctx, page, size, userID)
}

// HandlePaymentSucceeded moves PENDING -> CONFIRMED. Any other current
// status is a logged no-op (duplicate or out-of-order delivery).
func (s *BookingSvc) HandlePaymentSucceeded(ctx context.Context, bookingID, paymentID string) error {
	eventID := events.RKPaymentSuccess + ":" + paymentID
	b, changed, err := s.repo.TransitionIfNotProcessed(ctx, bookingID, eventID, events.RKPaymentSuccess,
		domain.StatusPending, domain.StatusConfirmed)
	if err != nil {
		return err
	}
	if !changed {
		s.log.WithFields(logrus.Fields{"booking_id": bookingID, "status": b.Status}).
			Info("payment.success skipped, booking not PENDING")
		return nil
	}
	s.inval.Invalidate(ctx, cache.BookingKey(bookingID))
	return nil
}

// HandlePaymentFailed moves PENDING -> CANCELED and compensates by emitting
// booking.canceled so the room service releases occupancy.
func (s *BookingSvc) HandlePaymentFailed(ctx context.Context, bookingID, paymentID string) error {
	eventID := events.RKPaymentFailed + ":" + paymentID
	b, changed, err := s.repo.TransitionIfNotProcessed(ctx, bookingID, eventID, events.RKPaymentFailed,
		domain.StatusPending, domain.StatusCanceled)
	if err != nil {
		return err
	}
	if !changed {
		s.log.WithFields(logrus.Fields{"booking_id": bookingID, "status": b.Status}).
			Info("payment.failed skipped, booking not PENDING")
		return nil
	}
	s.inval.Invalidate(ctx, cache.BookingKey(bookingID))
	s.publishCanceled(ctx, b)
	return nil
}

// HandlePaymentRefunded moves CONFIRMED -> CANCELED (refund path).
func (s *BookingSvc) HandlePaymentRefunded(ctx context.Context, bookingID, paymentID string) error {
	eventID := events.RKPaymentRefunded + ":" + paymentID
	b, changed, err := s.repo.TransitionIfNotProcessed(ctx, bookingID, eventID, events.RKPaymentRefunded,
		domain.StatusConfirmed, domain.StatusCanceled)
	if err != nil {
		return err
	}
	if !changed {
		s.log.WithFields(logrus.Fields{"booking_id": bookingID, "status": b.Status}).
			Info("payment.refunded skipped, booking not CONFIRMED")
		return nil
	}
	s.inval.Invalidate(ctx, cache.BookingKey(bookingID))
	s.publishCanceled(ctx, b)
	return nil
}

// Cancel forces CANCELED from any prior state; CANCELED itself is absorbing.
func (s *BookingSvc) Cancel(ctx context.Context, id string) (*domain.Booking, error) {
	b, changed, err := s.repo.ForceCancel(ctx, id)
	if err == repository.ErrNotFound {
		return nil, apperr.NotFoundf("booking %s", id)
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		s.log.WithField("booking_id", id).Info("cancel skipped, already CANCELED")
		return b, nil
	}
	s.inval.Invalidate(ctx, cache.BookingKey(id))
	s.publishCanceled(ctx, b)
	return b, nil
}

// HandleRoomDeleted cancels every not-yet-started booking referencing the
// deleted room.
func (s *BookingSvc) HandleRoomDeleted(ctx context.Context, roomID string) error {
	list, err := s.repo.ActiveByRoom(ctx, roomID, time.Now().UTC())
	if err != nil {
		return err
	}
	for i := range list {
		if _, err := s.Cancel(ctx, list[i].ID); err != nil {
			s.log.WithError(err).WithField("booking_id", list[i].ID).Error("cancel after room.deleted failed")
		}
	}
	return nil
}

func (s *BookingSvc) publishCreated(ctx context.Context, b *domain.Booking) {
	payload := events.BookingCreated{
		BookingID: b.ID,
		UserID:    b.UserID,
		Status:    b.Status,
		StartDate: b.StartDate.Format(time.RFC3339),
		EndDate:   b.EndDate.Format(time.RFC3339),
	}
	for _, d := range b.Details {
		payload.Details = append(payload.Details, events.BookingDetail{RoomID: d.RoomID, Price: d.Price})
	}
	if err := s.pub.PublishEvent(ctx, events.RKBookingCreated, b.ID, payload); err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Warn("publish booking.created failed")
	}
}

func (s *BookingSvc) publishCanceled(ctx context.Context, b *domain.Booking) {
	payload := events.BookingCanceled{BookingID: b.ID, UserID: b.UserID, RoomIDs: b.RoomIDs()}
	if err := s.pub.PublishEvent(ctx, events.RKBookingCanceled, b.ID, payload); err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Warn("publish booking.canceled failed")
	}
}
