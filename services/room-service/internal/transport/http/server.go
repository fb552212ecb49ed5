package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/domain"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/service"
)

type Server struct {
	svc *service.RoomSvc
}

func NewServer(svc *service.RoomSvc) *Server {
	return &Server{svc: svc}
}

type roomOut struct {
	ID            string `json:"id"`
	BuildingID    string `json:"building_id"`
	Name          string `json:"name,omitempty"`
	Price         int64  `json:"price"`
	Capacity      int32  `json:"capacity"`
	CountCapacity int32  `json:"count_capacity"`
	Status        string `json:"status"`
}

func toHTTP(r *domain.Room) roomOut {
	return roomOut{
		ID:            r.ID,
		BuildingID:    r.BuildingID,
		Name:          r.Name,
		Price:         r.Price,
		Capacity:      r.Capacity,
		CountCapacity: r.CountCapacity,
		Status:        r.Status,
	}
}

func (s *Server) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	v1 := r.Group("/v1")
	v1.POST("/rooms", s.create)
	v1.GET("/rooms", s.list)
	v1.GET("/rooms/:id", s.get)
	v1.DELETE("/rooms/:id", s.delete)
}

func (s *Server) create(c *gin.Context) {
	var in struct {
		BuildingID string `json:"building_id" binding:"required"`
		Name       string `json:"name"`
		Price      int64  `json:"price"`
		Capacity   int32  `json:"capacity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, apperr.Wrap(apperr.Validation, "bad request", err))
		return
	}
	room, err := s.svc.Create(c.Request.Context(), domain.Room{
		BuildingID: in.BuildingID,
		Name:       in.Name,
		Price:      in.Price,
		Capacity:   in.Capacity,
	})
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toHTTP(room))
}

func (s *Server) get(c *gin.Context) {
	room, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toHTTP(room))
}

func (s *Server) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	list, err := s.svc.List(c.Request.Context(), int32(page), int32(size), c.Query("building_id"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	out := make([]roomOut, 0, len(list))
	for i := range list {
		out = append(out, toHTTP(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

func (s *Server) delete(c *gin.Context) {
	if err := s.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
