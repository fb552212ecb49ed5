package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/domain"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/service"
)

type Server struct {
	svc *service.PaymentSvc
}

func NewServer(svc *service.PaymentSvc) *Server {
	return &Server{svc: svc}
}

type paymentOut struct {
	ID            string `json:"id"`
	BookingID     string `json:"booking_id"`
	UserID        string `json:"user_id"`
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	Status        string `json:"status"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id,omitempty"`
	QRImageURL    string `json:"qr_image_url,omitempty"`
	PaymentURL    string `json:"payment_url,omitempty"`
	PaymentDate   string `json:"payment_date,omitempty"`
}

func toHTTP(p *domain.Payment) paymentOut {
	out := paymentOut{
		ID:            p.ID,
		BookingID:     p.BookingID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        p.Status,
		Reference:     p.Reference,
		TransactionID: p.TransactionID,
		QRImageURL:    p.QRImageURL,
		PaymentURL:    p.PaymentURL,
	}
	if p.PaymentDate != nil {
		out.PaymentDate = p.PaymentDate.UTC().Format(time.RFC3339)
	}
	return out
}

func (s *Server) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	v1 := r.Group("/v1")
	v1.GET("/payments/:id", s.get)
	v1.GET("/bookings/:bookingId/payment", s.getByBooking)
	// Manual confirmation path for operators, mirroring what the mailbox
	// reconciler does automatically.
	v1.POST("/payments/:id/confirm", s.confirm)
	v1.POST("/payments/:id/fail", s.fail)
	v1.POST("/payments/:id/refund", s.refund)
}

func (s *Server) get(c *gin.Context) {
	p, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toHTTP(p))
}

func (s *Server) getByBooking(c *gin.Context) {
	p, err := s.svc.GetByBooking(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toHTTP(p))
}

func (s *Server) confirm(c *gin.Context) {
	var in struct {
		TransactionID string `json:"transaction_id"`
	}
	_ = c.ShouldBindJSON(&in)
	p, err := s.svc.MarkStatus(c.Request.Context(), c.Param("id"), domain.StatusSuccess, in.TransactionID, "")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toHTTP(p))
}

func (s *Server) fail(c *gin.Context) {
	p, err := s.svc.MarkStatus(c.Request.Context(), c.Param("id"), domain.StatusFailed, "", "")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toHTTP(p))
}

func (s *Server) refund(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&in)
	p, err := s.svc.MarkStatus(c.Request.Context(), c.Param("id"), domain.StatusRefunded, "", in.Reason)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toHTTP(p))
}
