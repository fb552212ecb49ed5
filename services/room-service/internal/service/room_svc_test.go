package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/events"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/logging"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/domain"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/repository"
)

type fakeRoomRepo struct {
	rooms     map[string]*domain.Room
	contended map[string]bool
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: map[string]*domain.Room{}, contended: map[string]bool{}}
}

func (r *fakeRoomRepo) Create(_ context.Context, room *domain.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	cp := *room
	r.rooms[room.ID] = &cp
	return nil
}

func (r *fakeRoomRepo) ByID(_ context.Context, id string) (*domain.Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (r *fakeRoomRepo) List(_ context.Context, _, _ int32, buildingID string) ([]domain.Room, error) {
	var out []domain.Room
	for _, room := range r.rooms {
		if buildingID == "" || room.BuildingID == buildingID {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (r *fakeRoomRepo) Delete(_ context.Context, id string) (*domain.Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.rooms, id)
	return room, nil
}

func (r *fakeRoomRepo) Reserve(_ context.Context, id string) (*domain.Room, bool, error) {
	return r.mutate(id, (*domain.Room).Reserve)
}

func (r *fakeRoomRepo) Release(_ context.Context, id string) (*domain.Room, bool, error) {
	return r.mutate(id, (*domain.Room).Release)
}

func (r *fakeRoomRepo) mutate(id string, apply func(*domain.Room) bool) (*domain.Room, bool, error) {
	if r.contended[id] {
		return nil, false, repository.ErrContended
	}
	room, ok := r.rooms[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	changed := apply(room)
	cp := *room
	return &cp, changed, nil
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

type fakeInval struct{ keys []string }

func (i *fakeInval) Invalidate(_ context.Context, key string) { i.keys = append(i.keys, key) }

func newTestSvc() (*RoomSvc, *fakeRoomRepo, *fakePub, *fakeInval) {
	repo := newFakeRoomRepo()
	pub := &fakePub{}
	inval := &fakeInval{}
	return NewRoomSvc(repo, pub, inval, logging.New("room-test")), repo, pub, inval
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _, _, _ := newTestSvc()

	_, err := svc.Create(context.Background(), domain.Room{Capacity: 2})
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = svc.Create(context.Background(), domain.Room{BuildingID: "b1"})
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestCreateStartsEmptyAndAvailable(t *testing.T) {
	svc, _, _, _ := newTestSvc()

	room, err := svc.Create(context.Background(), domain.Room{
		BuildingID: "b1", Capacity: 2, CountCapacity: 5, Status: domain.StatusBooked,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), room.CountCapacity)
	assert.Equal(t, domain.StatusAvailable, room.Status)
}

func TestDeleteEmitsRoomDeleted(t *testing.T) {
	svc, repo, pub, inval := newTestSvc()
	room := &domain.Room{ID: "r1", BuildingID: "b1", Capacity: 1, Status: domain.StatusAvailable}
	require.NoError(t, repo.Create(context.Background(), room))

	require.NoError(t, svc.Delete(context.Background(), "r1"))

	require.Len(t, pub.keys, 1)
	assert.Equal(t, events.RKRoomDeleted, pub.keys[0])
	payload := pub.payloads[0].(events.RoomDeleted)
	assert.Equal(t, "r1", payload.RoomID)
	assert.Equal(t, "b1", payload.BuildingID)
	assert.NotEmpty(t, inval.keys)

	err := svc.Delete(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestOnBookingCreatedReservesEachRoom(t *testing.T) {
	svc, repo, _, inval := newTestSvc()
	require.NoError(t, repo.Create(context.Background(), &domain.Room{ID: "r1", Capacity: 1, Status: domain.StatusAvailable}))
	require.NoError(t, repo.Create(context.Background(), &domain.Room{ID: "r2", Capacity: 3, Status: domain.StatusAvailable}))

	err := svc.OnBookingCreated(context.Background(), "b1", []events.BookingDetail{
		{RoomID: "r1", Price: 500},
		{RoomID: "r2", Price: 300},
	})
	require.NoError(t, err)

	r1, _ := repo.ByID(context.Background(), "r1")
	assert.Equal(t, domain.StatusBooked, r1.Status)
	assert.Equal(t, int32(1), r1.CountCapacity)
	r2, _ := repo.ByID(context.Background(), "r2")
	assert.Equal(t, domain.StatusAvailable, r2.Status)
	assert.Equal(t, int32(1), r2.CountCapacity)
	assert.Len(t, inval.keys, 2)
}

func TestOnBookingCreatedSkipsMissingAndContendedRooms(t *testing.T) {
	svc, repo, _, inval := newTestSvc()
	require.NoError(t, repo.Create(context.Background(), &domain.Room{ID: "busy", Capacity: 2, Status: domain.StatusAvailable}))
	repo.contended["busy"] = true

	err := svc.OnBookingCreated(context.Background(), "b1", []events.BookingDetail{
		{RoomID: "ghost"},
		{RoomID: "busy"},
	})
	require.NoError(t, err)
	assert.Empty(t, inval.keys)
}

func TestOnBookingCreatedSkipsFullRoom(t *testing.T) {
	svc, repo, _, inval := newTestSvc()
	require.NoError(t, repo.Create(context.Background(), &domain.Room{
		ID: "r1", Capacity: 1, CountCapacity: 1, Status: domain.StatusBooked,
	}))

	err := svc.OnBookingCreated(context.Background(), "b1", []events.BookingDetail{{RoomID: "r1"}})
	require.NoError(t, err)

	r1, _ := repo.ByID(context.Background(), "r1")
	assert.Equal(t, int32(1), r1.CountCapacity)
	assert.Empty(t, inval.keys)
}

func TestOnBookingCanceledReleasesRooms(t *testing.T) {
	svc, repo, _, _ := newTestSvc()
	require.NoError(t, repo.Create(context.Background(), &domain.Room{
		ID: "r1", Capacity: 1, CountCapacity: 1, Status: domain.StatusBooked,
	}))

	require.NoError(t, svc.OnBookingCanceled(context.Background(), "b1", []string{"r1"}))

	r1, _ := repo.ByID(context.Background(), "r1")
	assert.Equal(t, domain.StatusAvailable, r1.Status)
	assert.Equal(t, int32(0), r1.CountCapacity)

	// redelivery after the release is a no-op
	require.NoError(t, svc.OnBookingCanceled(context.Background(), "b1", []string{"r1"}))
	r1, _ = repo.ByID(context.Background(), "r1")
	assert.Equal(t, int32(0), r1.CountCapacity)
}
