package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TuanStark/dorm-microservice-system-sub000/services/api-gateway/internal/clients"
)

type BookingHandler struct {
	c *clients.Clients
}

func NewBookingHandler(c *clients.Clients) *BookingHandler {
	return &BookingHandler{c: c}
}

// POST /v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	h.c.Forward(c, http.MethodPost, h.c.Booking, "/v1/bookings")
}

// GET /v1/bookings
func (h *BookingHandler) List(c *gin.Context) {
	h.c.Forward(c, http.MethodGet, h.c.Booking, "/v1/bookings?"+c.Request.URL.RawQuery)
}

// GET /v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	h.c.Forward(c, http.MethodGet, h.c.Booking, "/v1/bookings/"+c.Param("id"))
}

// POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	h.c.Forward(c, http.MethodPost, h.c.Booking, "/v1/bookings/"+c.Param("id")+"/cancel")
}
