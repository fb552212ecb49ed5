package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/logging"
)

type fakeMailbox struct {
	bodies  []string
	err     error
	entered chan struct{}
	block   chan struct{}
}

func (m *fakeMailbox) RecentBodies(_ context.Context) ([]string, error) {
	if m.entered != nil {
		close(m.entered)
	}
	if m.block != nil {
		<-m.block
	}
	return m.bodies, m.err
}

type verifyCall struct {
	ref    string
	amount int64
}

type recorder struct {
	mu    sync.Mutex
	calls []verifyCall
	match map[string]bool
	err   error
}

func (r *recorder) verify(_ context.Context, ref string, amount int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, verifyCall{ref, amount})
	if r.err != nil {
		return false, r.err
	}
	return r.match[ref], nil
}

func TestScanVerifiesParsedMessages(t *testing.T) {
	mbox := &fakeMailbox{bodies: []string{
		"Transfer received. Amount: 1,500 Memo BOOKING_a1b2c3d4",
		"Your monthly statement is ready.",
		// reference but no amount: must be skipped, not confirmed
		"Your booking 11223344-5566-4788-9abc-def012345678 was created successfully.",
		"Order 9f8e7d6c-1234-4abc-9def-0123456789ab paid, total 800",
	}}
	rec := &recorder{match: map[string]bool{"BOOKING_a1b2c3d4": true}}
	r := New(mbox, rec.verify, logging.New("reconciler-test"))

	require.NoError(t, r.Scan(context.Background()))
	require.Len(t, rec.calls, 2)
	assert.Equal(t, verifyCall{"BOOKING_a1b2c3d4", 1500}, rec.calls[0])
	assert.Equal(t, verifyCall{"BOOKING_9f8e7d6c", 800}, rec.calls[1])
}

func TestScanAbortsOnMailboxError(t *testing.T) {
	mbox := &fakeMailbox{err: errors.New("imap: connection refused")}
	rec := &recorder{}
	r := New(mbox, rec.verify, logging.New("reconciler-test"))

	err := r.Scan(context.Background())
	require.Error(t, err)
	assert.Empty(t, rec.calls)
}

func TestScanSkipsFailingVerification(t *testing.T) {
	mbox := &fakeMailbox{bodies: []string{
		"Amount: 100 BOOKING_aaaaaaaa",
		"Amount: 200 BOOKING_bbbbbbbb",
	}}
	rec := &recorder{err: errors.New("db down")}
	r := New(mbox, rec.verify, logging.New("reconciler-test"))

	// verification failures skip the message, not the cycle
	require.NoError(t, r.Scan(context.Background()))
	assert.Len(t, rec.calls, 2)
}

func TestScanDoesNotOverlap(t *testing.T) {
	mbox := &fakeMailbox{
		bodies:  []string{"Amount: 100 BOOKING_aaaaaaaa"},
		entered: make(chan struct{}),
		block:   make(chan struct{}),
	}
	rec := &recorder{}
	r := New(mbox, rec.verify, logging.New("reconciler-test"))

	done := make(chan error, 1)
	go func() { done <- r.Scan(context.Background()) }()
	<-mbox.entered

	// second cycle while the first is stuck in the mailbox fetch
	require.NoError(t, r.Scan(context.Background()))
	assert.Empty(t, rec.calls, "overlapping cycle must not re-fetch or verify")

	close(mbox.block)
	require.NoError(t, <-done)
	assert.Len(t, rec.calls, 1)
}
