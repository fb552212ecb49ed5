package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/config"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/obs"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/api-gateway/internal/clients"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/api-gateway/internal/handlers"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/api-gateway/internal/middlewares"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	_ = obs.InitTracer("api-gateway")

	c := clients.New(cfg.BookingHTTPAddr, cfg.PaymentHTTPAddr, cfg.RoomHTTPAddr)
	r := gin.Default()
	r.Use(cors.Default())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	v1 := r.Group("/v1")
	{
		rh := handlers.NewRoomHandler(c)
		v1.GET("/rooms", rh.List)
		v1.GET("/rooms/:id", rh.Get)
		admin := v1.Group("")
		admin.Use(middlewares.JWTAuth(), middlewares.RequireRole("ADMIN"))
		admin.POST("/rooms", rh.Create)
		admin.DELETE("/rooms/:id", rh.Delete)

		bh := handlers.NewBookingHandler(c)
		ph := handlers.NewPaymentHandler(c)
		secured := v1.Group("")
		secured.Use(middlewares.JWTAuth())
		{
			secured.POST("/bookings", bh.Create)
			secured.GET("/bookings", bh.List)
			secured.GET("/bookings/:id", bh.Get)
			secured.POST("/bookings/:id/cancel", bh.Cancel)
			secured.GET("/bookings/:id/payment", ph.GetByBooking)
			secured.GET("/payments/:id", ph.Get)
		}
		admin.POST("/payments/:id/confirm", ph.Confirm)
		admin.POST("/payments/:id/fail", ph.Fail)
		admin.POST("/payments/:id/refund", ph.Refund)
	}

	log.Println("api-gateway on", cfg.GatewayHTTPAddr)
	log.Fatal(r.Run(cfg.GatewayHTTPAddr))
}
