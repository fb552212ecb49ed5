// Package reconciler confirms bank transfers by scanning an inbox for
// confirmation mails. With no payment-gateway webhook this is the only
// automated confirmation path.
package reconciler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Mailbox hides the retrieval protocol; the imap client implements it.
type Mailbox interface {
	RecentBodies(ctx context.Context) ([]string, error)
}

// VerifyFunc is the slice of the payment service the reconciler needs.
type VerifyFunc func(ctx context.Context, ref string, observedAmount int64) (matched bool, err error)

type Reconciler struct {
	mbox Mailbox
	svc  VerifyFunc
	log  *logrus.Entry
	mu   sync.Mutex
	cron *cron.Cron
}

func New(mbox Mailbox, verify VerifyFunc, log *logrus.Entry) *Reconciler {
	return &Reconciler{mbox: mbox, svc: verify, log: log}
}

// Start schedules periodic scans. spec is a cron expression, e.g.
// "*/5 * * * *" for every five minutes.
func (r *Reconciler) Start(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := r.Scan(ctx); err != nil {
			r.log.WithError(err).Warn("mailbox scan failed, deferring to next cycle")
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	r.cron = c
	return nil
}

func (r *Reconciler) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// Scan is one reconciliation cycle. It never overlaps with itself: a cycle
// that finds the previous one still running returns immediately. A
// connection failure abandons the whole cycle; a message that fails to
// parse is skipped.
func (r *Reconciler) Scan(ctx context.Context) error {
	if !r.mu.TryLock() {
		r.log.Info("previous scan still running, skipping cycle")
		return nil
	}
	defer r.mu.Unlock()

	bodies, err := r.mbox.RecentBodies(ctx)
	if err != nil {
		return err
	}

	for _, body := range bodies {
		ref, ok := ExtractReference(body)
		if !ok {
			continue
		}
		amount, ok := ExtractAmount(body)
		if !ok {
			continue
		}
		matched, err := r.svc(ctx, ref, amount)
		if err != nil {
			r.log.WithError(err).WithField("reference", ref).Error("verification failed, skipping message")
			continue
		}
		if matched {
			r.log.WithFields(logrus.Fields{"reference": ref, "amount": amount}).
				Info("payment confirmed from mailbox")
		}
	}
	return nil
}
