package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/cache"
)

type RoomSnapshot struct {
	ID            string `json:"id"`
	BuildingID    string `json:"building_id"`
	Capacity      int32  `json:"capacity"`
	CountCapacity int32  `json:"count_capacity"`
	Status        string `json:"status"`
}

// RoomClient reads room snapshots through the shared cache; on a miss it
// fetches from the room service with the cache's bounded timeout.
type RoomClient struct {
	base  string
	http  *http.Client
	cache *cache.Cache
	log   *logrus.Entry
}

func NewRoomClient(base string, c *cache.Cache, log *logrus.Entry) *RoomClient {
	return &RoomClient{
		base:  base,
		http:  &http.Client{Timeout: 5 * time.Second},
		cache: c,
		log:   log,
	}
}

func (c *RoomClient) Get(ctx context.Context, id string) (*RoomSnapshot, error) {
	var snap RoomSnapshot
	err := c.cache.GetInto(ctx, cache.RoomKey(id), &snap, func(ctx context.Context) (any, error) {
		return c.fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *RoomClient) fetch(ctx context.Context, id string) (*RoomSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/rooms/"+id, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, apperr.NotFoundf("room %s", id)
	}
	if res.StatusCode != http.StatusOK {
		return nil, apperr.Wrap(apperr.TransientInfra, "room service", fmt.Errorf("status %d", res.StatusCode))
	}
	var snap RoomSnapshot
	if err := json.NewDecoder(res.Body).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
