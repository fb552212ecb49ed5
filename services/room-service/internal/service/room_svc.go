package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/cache"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/events"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/mq"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/domain"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/repository"
)

// Invalidator drops stale cache snapshots after writes.
type Invalidator interface {
	Invalidate(ctx context.Context, key string)
}

type RoomSvc struct {
	repo  repository.RoomRepository
	pub   mq.EventPublisher
	inval Invalidator
	log   *logrus.Entry
}

func NewRoomSvc(r repository.RoomRepository, pub mq.EventPublisher, inval Invalidator, log *logrus.Entry) *RoomSvc {
	return &RoomSvc{repo: r, pub: pub, inval: inval, log: log}
}

func (s *RoomSvc) Create(ctx context.Context, in domain.Room) (*domain.Room, error) {
	if in.BuildingID == "" {
		return nil, apperr.Validationf("building_id is required")
	}
	if in.Capacity <= 0 {
		return nil, apperr.Validationf("capacity must be positive")
	}
	in.CountCapacity = 0
	in.Status = domain.StatusAvailable
	if err := s.repo.Create(ctx, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *RoomSvc) Get(ctx context.Context, id string) (*domain.Room, error) {
	room, err := s.repo.ByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFoundf("room %s", id)
	}
	return room, err
}

func (s *RoomSvc) List(ctx context.Context, page, size int32, buildingID string) ([]domain.Room, error) {
	return s.repo.List(ctx, page, size, buildingID)
}

// Delete removes the room and emits room.deleted so the booking service can
// cancel not-yet-started bookings referencing it.
func (s *RoomSvc) Delete(ctx context.Context, id string) error {
	room, err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFoundf("room %s", id)
	}
	if err != nil {
		return err
	}
	s.inval.Invalidate(ctx, cache.RoomKey(id))
	payload := events.RoomDeleted{RoomID: room.ID, BuildingID: room.BuildingID}
	if err := s.pub.PublishEvent(ctx, events.RKRoomDeleted, room.ID, payload); err != nil {
		s.log.WithError(err).WithField("room_id", room.ID).Warn("publish room.deleted failed")
	}
	return nil
}

// OnBookingCreated reserves occupancy for each detail room. Inconsistencies
// are logged and skipped, never fatal to the saga.
func (s *RoomSvc) OnBookingCreated(ctx context.Context, bookingID string, details []events.BookingDetail) error {
	for _, d := range details {
		room, changed, err := s.repo.Reserve(ctx, d.RoomID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.log.WithFields(logrus.Fields{"booking_id": bookingID, "room_id": d.RoomID}).
				Error("room missing during reservation, skipping")
			continue
		case errors.Is(err, repository.ErrContended):
			s.log.WithFields(logrus.Fields{"booking_id": bookingID, "room_id": d.RoomID}).
				Warn("room contended, skipping (event will redeliver)")
			continue
		case err != nil:
			return err
		}
		if !changed {
			s.log.WithFields(logrus.Fields{"booking_id": bookingID, "room_id": d.RoomID, "status": room.Status}).
				Info("room not AVAILABLE, reservation skipped")
			continue
		}
		s.inval.Invalidate(ctx, cache.RoomKey(d.RoomID))
	}
	return nil
}

// OnBookingCanceled releases occupancy for each room of the canceled
// booking.
func (s *RoomSvc) OnBookingCanceled(ctx context.Context, bookingID string, roomIDs []string) error {
	for _, id := range roomIDs {
		room, changed, err := s.repo.Release(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.log.WithFields(logrus.Fields{"booking_id": bookingID, "room_id": id}).
				Error("room missing during release, skipping")
			continue
		case errors.Is(err, repository.ErrContended):
			s.log.WithFields(logrus.Fields{"booking_id": bookingID, "room_id": id}).
				Warn("room contended, skipping (event will redeliver)")
			continue
		case err != nil:
			return err
		}
		if !changed {
			s.log.WithFields(logrus.Fields{"booking_id": bookingID, "room_id": id, "status": room.Status}).
				Info("room not BOOKED, nothing to release")
			continue
		}
		s.inval.Invalidate(ctx, cache.RoomKey(id))
	}
	return nil
}
