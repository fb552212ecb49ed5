package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kelseyhightower/envconfig"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/db"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/logging"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/mq"
	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/obs"
	cons "github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/consumer"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/reconciler"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/repository"
	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/service"
	thttp "github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/transport/http"
)

type Cfg struct {
	PGPaymentDSN    string `envconfig:"PG_PAYMENT_DSN" required:"true"`
	PaymentHTTPAddr string `envconfig:"PAYMENT_HTTP_ADDR" default:":8084"`

	RabbitURL       string `envconfig:"RABBIT_URL" required:"true"`
	PaymentExchange string `envconfig:"PAYMENT_EXCHANGE" default:"payment.exchange"`
	PaymentCmdQueue string `envconfig:"PAYMENT_CREATE_QUEUE" default:"payment.create.q"`

	IMAPAddr     string `envconfig:"IMAP_ADDR" default:""`
	IMAPUser     string `envconfig:"IMAP_USER" default:""`
	IMAPPassword string `envconfig:"IMAP_PASSWORD" default:""`
	ScanCron     string `envconfig:"MAILBOX_SCAN_CRON" default:"*/5 * * * *"`
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

	logger := logging.New("payment-service")
	shutdown := obs.InitTracer("payment-service")

	gdb := db.Open(cfg.PGPaymentDSN)
	repo := repository.NewPaymentRepo(gdb)
	must(0, repo.Migrate())

	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.PaymentExchange))
	defer pub.Close()

	svc := service.NewPaymentSvc(repo, pub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmdQueue := must(mq.NewCommandQueue(cfg.RabbitURL, cfg.PaymentCmdQueue))
	defer cmdQueue.Close()
	cc := cons.NewCommandConsumer(svc, cmdQueue, logger)
	must(0, cc.Run(ctx))
	logger.Info("command consumer started (payment.create.q)")

	if cfg.IMAPAddr != "" {
		mbox := &reconciler.IMAPMailbox{Addr: cfg.IMAPAddr, Username: cfg.IMAPUser, Password: cfg.IMAPPassword}
		rec := reconciler.New(mbox, func(ctx context.Context, ref string, amount int64) (bool, error) {
			_, matched, err := svc.VerifyFromReference(ctx, ref, amount)
			return matched, err
		}, logger)
		must(0, rec.Start(ctx, cfg.ScanCron))
		defer rec.Stop()
		logger.WithField("cron", cfg.ScanCron).Info("mailbox reconciler scheduled")
	} else {
		logger.Warn("IMAP_ADDR unset, mailbox reconciliation disabled")
	}

	r := gin.Default()
	thttp.NewServer(svc).Register(r)
	go func() {
		logger.WithField("addr", cfg.PaymentHTTPAddr).Info("http listening")
		log.Fatal(r.Run(cfg.PaymentHTTPAddr))
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	_ = shutdown(context.Background())
	logger.Info("stopped")
}
