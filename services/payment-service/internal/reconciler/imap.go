package reconciler

import (
	"context"
	"fmt"
	"io"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
)

// IMAPMailbox fetches recent message bodies from INBOX. A fresh connection
// per scan keeps the client trivial; the scan period dwarfs dial cost.
type IMAPMailbox struct {
	Addr     string // host:993
	Username string
	Password string
	Window   uint32 // how many recent messages to scan
}

func (m *IMAPMailbox) RecentBodies(ctx context.Context) ([]string, error) {
	c, err := client.DialTLS(m.Addr, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.TransientInfra, "imap dial", err)
	}
	defer c.Logout()

	if err := c.Login(m.Username, m.Password); err != nil {
		return nil, apperr.Wrap(apperr.TransientInfra, "imap login", err)
	}

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return nil, apperr.Wrap(apperr.TransientInfra, "imap select", err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	window := m.Window
	if window == 0 {
		window = 50
	}
	from := uint32(1)
	if mbox.Messages > window {
		from = mbox.Messages - window + 1
	}
	seq := new(imap.SeqSet)
	seq.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	msgs := make(chan *imap.Message, window)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seq, []imap.FetchItem{section.FetchItem()}, msgs)
	}()

	var bodies []string
	for msg := range msgs {
		r := msg.GetBody(section)
		if r == nil {
			continue
		}
		b, err := io.ReadAll(r)
		if err != nil {
			continue // parse failures skip the message, not the scan
		}
		bodies = append(bodies, string(b))
	}
	if err := <-done; err != nil {
		return nil, apperr.Wrap(apperr.TransientInfra, fmt.Sprintf("imap fetch %d..%d", from, mbox.Messages), err)
	}
	return bodies, nil
}
