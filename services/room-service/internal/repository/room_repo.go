package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/domain"
)

var (
	ErrNotFound = errors.New("room not found")
	// ErrContended: both optimistic attempts lost the version race. The
	// caller skips and lets the event redeliver.
	ErrContended = errors.New("room update contended")
)

type RoomRepository interface {
	Create(ctx context.Context, r *domain.Room) error
	ByID(ctx context.Context, id string) (*domain.Room, error)
	List(ctx context.Context, page, size int32, buildingID string) ([]domain.Room, error)
	Delete(ctx context.Context, id string) (*domain.Room, error)
	// Reserve increments occupancy while the room is AVAILABLE. Returns the
	// room and whether occupancy changed.
	Reserve(ctx context.Context, id string) (*domain.Room, bool, error)
	// Release decrements occupancy while the room is BOOKED.
	Release(ctx context.Context, id string) (*domain.Room, bool, error)
}

type GormRoomRepo struct{ db *gorm.DB }

func NewRoomRepo(db *gorm.DB) *GormRoomRepo {
	return &GormRoomRepo{db: db}
}

func (r *GormRoomRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Room{})
}

func (r *GormRoomRepo) Create(ctx context.Context, room *domain.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.Status == "" {
		room.Status = domain.StatusAvailable
	}
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *GormRoomRepo) ByID(ctx context.Context, id string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *GormRoomRepo) List(ctx context.Context, page, size int32, buildingID string) ([]domain.Room, error) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	qb := r.db.WithContext(ctx).Model(&domain.Room{})
	if buildingID != "" {
		qb = qb.Where("building_id = ?", buildingID)
	}
	var out []domain.Room
	if err := qb.Limit(int(size)).Offset(int(page * size)).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRoomRepo) Delete(ctx context.Context, id string) (*domain.Room, error) {
	room, err := r.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&domain.Room{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return room, nil
}

func (r *GormRoomRepo) Reserve(ctx context.Context, id string) (*domain.Room, bool, error) {
	return r.mutate(ctx, id, (*domain.Room).Reserve)
}

func (r *GormRoomRepo) Release(ctx context.Context, id string) (*domain.Room, bool, error) {
	return r.mutate(ctx, id, (*domain.Room).Release)
}

// mutate applies apply under optimistic concurrency: the write only lands if
// the version read is still current, so concurrent reservations for a
// nearly-full room cannot overbook it.
func (r *GormRoomRepo) mutate(ctx context.Context, id string, apply func(*domain.Room) bool) (*domain.Room, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		room, err := r.ByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if !apply(room) {
			return room, false, nil
		}
		res := r.db.WithContext(ctx).Model(&domain.Room{}).
			Where("id = ? AND version = ?", id, room.Version).
			Updates(map[string]any{
				"count_capacity": room.CountCapacity,
				"status":         room.Status,
				"version":        room.Version + 1,
			})
		if res.Error != nil {
			return nil, false, res.Error
		}
		if res.RowsAffected == 1 {
			room.Version++
			return room, true, nil
		}
		// lost the version race, reload and retry once
	}
	return nil, false, ErrContended
}
