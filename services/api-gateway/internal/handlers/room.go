package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TuanStark/dorm-microservice-system-sub000/services/api-gateway/internal/clients"
)

type RoomHandler struct {
	c *clients.Clients
}

func NewRoomHandler(c *clients.Clients) *RoomHandler {
	return &RoomHandler{c: c}
}

// GET /v1/rooms
func (h *RoomHandler) List(c *gin.Context) {
	h.c.Forward(c, http.MethodGet, h.c.Room, "/v1/rooms?"+c.Request.URL.RawQuery)
}

// GET /v1/rooms/:id
func (h *RoomHandler) Get(c *gin.Context) {
	h.c.Forward(c, http.MethodGet, h.c.Room, "/v1/rooms/"+c.Param("id"))
}

// POST /v1/rooms (ADMIN)
func (h *RoomHandler) Create(c *gin.Context) {
	h.c.Forward(c, http.MethodPost, h.c.Room, "/v1/rooms")
}

// DELETE /v1/rooms/:id (ADMIN)
func (h *RoomHandler) Delete(c *gin.Context) {
	h.c.Forward(c, http.MethodDelete, h.c.Room, "/v1/rooms/"+c.Param("id"))
}
