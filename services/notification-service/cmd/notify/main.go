package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/logging"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/mq"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/obs"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/notification-service/internal/notifier"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/notification-service/internal/worker"
)

type Cfg struct {
	RabbitURL string `envconfig:"RABBIT_URL" required:"true"`
	Exchanges string `envconfig:"NOTIFY_EXCHANGES" default:"booking.exchange,payment.exchange,room.exchange"`
	Queue     string `envconfig:"NOTIFY_QUEUE" default:"notification.q"`
	Bindings  string `envconfig:"NOTIFY_BINDINGS" default:"booking.*,payment.*,room.*"`
	DLXName   string `envconfig:"NOTIFY_DLX" default:"notification.dlx"`
	DLXQueue  string `envconfig:"NOTIFY_DLQ" default:"notification.q.dlq"`
}

func parseCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	var cfg Cfg
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal(err)
	}

	logger := logging.New("notification-service")
	shutdown := obs.InitTracer("notification-service")

	var cons *mq.Consumer
	for {
		c, err := mq.NewConsumer(mq.ConsumerConfig{
			URL:       cfg.RabbitURL,
			Exchanges: parseCSV(cfg.Exchanges),
			Queue:     cfg.Queue,
			Bindings:  parseCSV(cfg.Bindings),
			Prefetch:  16,
			DLXName:   cfg.DLXName,
			DLXQueue:  cfg.DLXQueue,
			Tag:       "notification-service",
		})
		if err != nil {
			logger.WithError(err).Warn("connect failed, retry in 2s")
			time.Sleep(2 * time.Second)
			continue
		}
		cons = c
		break
	}
	defer cons.Close()

	ctx, cancel := context.WithCancel(context.Background())
	w := worker.New(cons, notifier.NewConsole(), logger)
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.WithError(err).Error("worker stopped")
		}
	}()
	logger.WithField("queue", cfg.Queue).Info("started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
	_ = shutdown(context.Background())
	time.Sleep(200 * time.Millisecond)
}
