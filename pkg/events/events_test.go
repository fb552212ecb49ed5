package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope(RKPaymentSuccess, "pay-1", PaymentSuccess{
		PaymentID: "pay-1", BookingID: "b1", Amount: 1500, Reference: "BOOKING_a1b2c3d4",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, env.Version)
	_, perr := time.Parse(time.RFC3339, env.EmittedAt)
	assert.NoError(t, perr)

	body, err := json.Marshal(env)
	require.NoError(t, err)

	payload, got, err := Decode[PaymentSuccess](body)
	require.NoError(t, err)
	assert.Equal(t, RKPaymentSuccess, got.EventType)
	assert.Equal(t, "pay-1", got.CorrelationID)
	assert.Equal(t, int64(1500), payload.Amount)
	assert.Equal(t, "BOOKING_a1b2c3d4", payload.Reference)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode[PaymentSuccess]([]byte("not json"))
	require.Error(t, err)

	_, _, err = Decode[PaymentSuccess]([]byte(`{"event_type":"payment.success","data":"not an object"}`))
	require.Error(t, err)
}
