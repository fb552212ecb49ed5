package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/domain"
)

var ErrNotFound = errors.New("booking not found")

// BookingRepository keeps the saga logic independent of gorm.
type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	ByID(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, page, size int32, userID string) ([]domain.Booking, int64, error)
	// TransitionIfNotProcessed applies from->to for bookingID unless eventID
	// was already consumed or the booking is not in from. Returns the
	// booking and whether the status actually changed.
	TransitionIfNotProcessed(ctx context.Context, bookingID, eventID, eventKey, from, to string) (*domain.Booking, bool, error)
	// ForceCancel moves any non-CANCELED booking to CANCELED. Returns the
	// booking and whether it changed.
	ForceCancel(ctx context.Context, id string) (*domain.Booking, bool, error)
	// ActiveByRoom lists PENDING/CONFIRMED bookings for roomID that have
	// not started yet.
	ActiveByRoom(ctx context.Context, roomID string, notStartedBefore time.Time) ([]domain.Booking, error)
}

type GormBookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *GormBookingRepo {
	return &GormBookingRepo{db: db}
}

func (r *GormBookingRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Booking{}, &domain.BookingDetail{}, &domain.EventConsumed{})
}

func (r *GormBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	for i := range b.Details {
		if b.Details[i].ID == "" {
			b.Details[i].ID = uuid.NewString()
		}
		b.Details[i].BookingID = b.ID
	}
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *GormBookingRepo) ByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).Preload("Details").First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepo) List(ctx context.Context, page, size int32, userID string) ([]domain.Booking, int64, error) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	qb := r.db.WithContext(ctx).Model(&domain.Booking{})
	if userID != "" {
		qb = qb.Where("user_id = ?", userID)
	}
	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Booking
	if err := qb.Preload("Details").Order("start_date ASC").
		Limit(int(size)).Offset(int(page * size)).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// TransitionIfNotProcessed is the idempotency guard for at-least-once
// delivery: the event_consumed check swallows duplicates and the status
// guard swallows out-of-order deliveries.
func (r *GormBookingRepo) TransitionIfNotProcessed(ctx context.Context, bookingID, eventID, eventKey, from, to string) (*domain.Booking, bool, error) {
	var b domain.Booking
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&domain.EventConsumed{}).Where("id = ?", eventID).Count(&seen).Error; err != nil {
			return err
		}
		if err := tx.Preload("Details").First(&b, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if seen > 0 {
			return nil
		}
		if b.Status == from {
			b.Status = to
			if err := tx.Model(&domain.Booking{}).Where("id = ?", b.ID).
				Update("status", to).Error; err != nil {
				return err
			}
			changed = true
		}
		rec := domain.EventConsumed{ID: eventID, EventKey: eventKey, ProcessedAt: time.Now().UTC()}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &b, changed, nil
}

func (r *GormBookingRepo) ForceCancel(ctx context.Context, id string) (*domain.Booking, bool, error) {
	var b domain.Booking
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Details").First(&b, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if b.Status == domain.StatusCanceled {
			return nil
		}
		b.Status = domain.StatusCanceled
		changed = true
		return tx.Model(&domain.Booking{}).Where("id = ?", b.ID).
			Update("status", domain.StatusCanceled).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &b, changed, nil
}

func (r *GormBookingRepo) ActiveByRoom(ctx context.Context, roomID string, notStartedBefore time.Time) ([]domain.Booking, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&domain.BookingDetail{}).
		Where("room_id = ?", roomID).Distinct().Pluck("booking_id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Booking
	if err := r.db.WithContext(ctx).Preload("Details").
		Where("id IN ?", ids).
		Where("status IN ?", []string{domain.StatusPending, domain.StatusConfirmed}).
		Where("start_date > ?", notStartedBefore).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
