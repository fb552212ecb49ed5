package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TuanStark/dorm-microservice-system-sub000/services/api-gateway/internal/clients"
)

type PaymentHandler struct {
	c *clients.Clients
}

func NewPaymentHandler(c *clients.Clients) *PaymentHandler {
	return &PaymentHandler{c: c}
}

// GET /v1/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	h.c.Forward(c, http.MethodGet, h.c.Payment, "/v1/payments/"+c.Param("id"))
}

// GET /v1/bookings/:id/payment
func (h *PaymentHandler) GetByBooking(c *gin.Context) {
	h.c.Forward(c, http.MethodGet, h.c.Payment, "/v1/bookings/"+c.Param("id")+"/payment")
}

// POST /v1/payments/:id/confirm (ADMIN — manual fallback for the reconciler)
func (h *PaymentHandler) Confirm(c *gin.Context) {
	h.c.Forward(c, http.MethodPost, h.c.Payment, "/v1/payments/"+c.Param("id")+"/confirm")
}

// POST /v1/payments/:id/fail (ADMIN)
func (h *PaymentHandler) Fail(c *gin.Context) {
	h.c.Forward(c, http.MethodPost, h.c.Payment, "/v1/payments/"+c.Param("id")+"/fail")
}

// POST /v1/payments/:id/refund (ADMIN)
func (h *PaymentHandler) Refund(c *gin.Context) {
	h.c.Forward(c, http.MethodPost, h.c.Payment, "/v1/payments/"+c.Param("id")+"/refund")
}
