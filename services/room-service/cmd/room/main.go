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
	cons "github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/consumer"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/repository"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/service"
	thttp "github.com/TuanStark/dorm-microservice-system-sub000/services/room-service/internal/transport/http"
)

type Cfg struct {
	PGRoomDSN    string `envconfig:"PG_ROOM_DSN" required:"true"`
	RoomHTTPAddr string `envconfig:"ROOM_HTTP_ADDR" default:":8082"`

	RabbitURL       string `envconfig:"RABBIT_URL" required:"true"`
	RoomExchange    string `envconfig:"ROOM_EXCHANGE" default:"room.exchange"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	BookingQueue    string `envconfig:"ROOM_BOOKING_QUEUE" default:"room.booking.q"`

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

	logger := logging.New("room-service")
	shutdown := obs.InitTracer("room-service")

	gdb := db.Open(cfg.PGRoomDSN)
	repo := repository.NewRoomRepo(gdb)
	must(0, repo.Migrate())

	roomPub := must(mq.NewPublisher(cfg.RabbitURL, cfg.RoomExchange))
	defer roomPub.Close()

	store := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
	entityCache := cache.New(store, logger)

	svc := service.NewRoomSvc(repo, roomPub, entityCache, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bookingCons := must(mq.NewConsumer(mq.ConsumerConfig{
		URL:       cfg.RabbitURL,
		Exchanges: []string{cfg.BookingExchange},
		Queue:     cfg.BookingQueue,
		Bindings:  []string{events.RKBookingCreated, events.RKBookingCanceled},
		DLXName:   "room.dlx",
		DLXQueue:  cfg.BookingQueue + ".dlq",
		Tag:       "room-service",
	}))
	defer bookingCons.Close()
	bc := cons.NewBookingConsumer(svc, bookingCons, logger)
	must(0, bc.Run(ctx))
	logger.Info("consumer started (booking.created, booking.canceled)")

	r := gin.Default()
	thttp.NewServer(svc).Register(r)
	go func() {
		logger.WithField("addr", cfg.RoomHTTPAddr).Info("http listening")
		log.Fatal(r.Run(cfg.RoomHTTPAddr))
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	_ = shutdown(context.Background())
	logger.Info("stopped")
}
