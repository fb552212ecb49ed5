package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kelseyhightower/envconfig"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/cache"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/db"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/events"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/logging"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/mq"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/obs"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/clients"
	cons "github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/consumer"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/repository"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/service"
	thttp "github.com/TuanStark/dorm-microservice-system-sub000/services/booking-service/internal/transport/http"
)

type Cfg struct {
	PGBookingDSN    string `envconfig:"PG_BOOKING_DSN" required:"true"`
	BookingHTTPAddr string `envconfig:"BOOKING_HTTP_ADDR" default:":8083"`
	RoomHTTPAddr    string `envconfig:"ROOM_HTTP_ADDR" default:"http://room-service:8082"`

	RabbitURL       string `envconfig:"RABBIT_URL" required:"true"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	PaymentExchange string `envconfig:"PAYMENT_EXCHANGE" default:"payment.exchange"`
	RoomExchange    string `envconfig:"ROOM_EXCHANGE" default:"room.exchange"`
	PaymentQueue    string `envconfig:"BOOKING_PAYMENT_QUEUE" default:"booking.payment.q"`
	PaymentCmdQueue string `envconfig:"PAYMENT_CREATE_QUEUE" default:"payment.create.q"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
}

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	var cfg Cfg
	must(0, envconfig.Process("", &cfg))

	logger := logging.New("booking-service")
	shutdown := obs.InitTracer("booking-service")

	gdb := db.Open(cfg.PGBookingDSN)
	repo := repository.NewBookingRepo(gdb)
	must(0, repo.Migrate())

	bookingPub := must(mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange))
	defer bookingPub.Close()
	paymentCmds := must(mq.NewCommandQueue(cfg.RabbitURL, cfg.PaymentCmdQueue))
	defer paymentCmds.Close()

	store := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
	entityCache := cache.New(store, logger)
	rooms := clients.NewRoomClient(cfg.RoomHTTPAddr, entityCache, logger)

	svc := service.NewBookingSvc(repo, bookingPub, paymentCmds, rooms, entityCache, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paymentCons := must(mq.NewConsumer(mq.ConsumerConfig{
		URL:       cfg.RabbitURL,
		Exchanges: []string{cfg.PaymentExchange, cfg.RoomExchange},
		Queue:     cfg.PaymentQueue,
		Bindings:  []string{events.RKPaymentSuccess, events.RKPaymentFailed, events.RKPaymentRefunded, events.RKRoomDeleted},
		DLXName:   "booking.dlx",
		DLXQueue:  cfg.PaymentQueue + ".dlq",
		Tag:       "booking-service",
	}))
	defer paymentCons.Close()
	pc := cons.NewPaymentConsumer(svc, paymentCons, logger)
	must(0, pc.Run(ctx))
	logger.Info("consumer started (payment.*, room.deleted)")

	r := gin.Default()
	thttp.NewServer(svc).Register(r)
	go func() {
		logger.WithField("addr", cfg.BookingHTTPAddr).Info("http listening")
		log.Fatal(r.Run(cfg.BookingHTTPAddr))
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	_ = shutdown(context.Background())
	logger.Info("stopped")
}
