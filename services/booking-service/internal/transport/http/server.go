package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/domain"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/service"
)

type Server struct {
	svc *service.BookingSvc
}

func NewServer(svc *service.BookingSvc) *Server {
	return &Server{svc: svc}
}

type bookingOut struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Status    string      `json:"status"`
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Details   []detailOut `json:"details"`
}

type detailOut struct {
	RoomID        string `json:"room_id"`
	Price         int64  `json:"price"`
	Note          string `json:"note,omitempty"`
	DurationUnits int32  `json:"duration_units"`
}

func toHTTP(b *domain.Booking) bookingOut {
	out := bookingOut{
		ID:        b.ID,
		UserID:    b.UserID,
		Status:    b.Status,
		StartDate: b.StartDate.UTC().Format(time.RFC3339),
		EndDate:   b.EndDate.UTC().Format(time.RFC3339),
	}
	for _, d := range b.Details {
		out.Details = append(out.Details, detailOut{
			RoomID: d.RoomID, Price: d.Price, Note: d.Note, DurationUnits: d.DurationUnits,
		})
	}
	return out
}

func (s *Server) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	v1 := r.Group("/v1")
	v1.POST("/bookings", s.create)
	v1.GET("/bookings", s.list)
	v1.GET("/bookings/:id", s.get)
	v1.POST("/bookings/:id/cancel", s.cancel)
}

func (s *Server) create(c *gin.Context) {
	var in struct {
		UserID    string                `json:"user_id" binding:"required"`
		StartDate string                `json:"start_date" binding:"required"`
		EndDate   string                `json:"end_date" binding:"required"`
		Details   []service.DetailInput `json:"details" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, apperr.Wrap(apperr.Validation, "bad request", err))
		return
	}
	b, err := s.svc.Create(c.Request.Context(), in.UserID, in.StartDate, in.EndDate, in.Details)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toHTTP(b))
}

func (s *Server) get(c *gin.Context) {
	b, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toHTTP(b))
}

func (s *Server) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	list, total, err := s.svc.List(c.Request.Context(), int32(page), int32(size), c.Query("user_id"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	out := make([]bookingOut, 0, len(list))
	for i := range list {
		out = append(out, toHTTP(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "bookings": out})
}

func (s *Server) cancel(c *gin.Context) {
	b, err := s.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toHTTP(b))
}
