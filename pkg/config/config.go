package config

import (
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// JWT
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	// Network
	BookingHTTPAddr string `envconfig:"BOOKING_HTTP_ADDR" default:"http://booking-service:8083"`
	PaymentHTTPAddr string `envconfig:"PAYMENT_HTTP_ADDR" default:"http://payment-service:8084"`
	RoomHTTPAddr    string `envconfig:"ROOM_HTTP_ADDR" default:"http://room-service:8082"`

	GatewayHTTPAddr string `envconfig:"GATEWAY_HTTP_ADDR" default:":8080"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
