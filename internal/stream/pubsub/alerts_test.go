package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/alerts"
	"github.com/saferoute/saferoute/pkg/polyline"
)

func sampleAlert() alerts.Alert {
	return alerts.Alert{
		ID:           "a-1",
		UserID:       "u-1",
		Origin:       polyline.Coordinate{Lat: 12.9716, Lon: 77.5946},
		RadiusMeters: 300,
		Message:      "Followed near the metro exit",
		CreatedAt:    time.Date(2024, 11, 4, 22, 10, 0, 0, time.UTC),
	}
}

func TestAlertCodec(t *testing.T) {
	data, err := encodeAlert(sampleAlert())
	require.NoError(t, err)

	got, err := decodeAlert(data)
	require.NoError(t, err)
	assert.Equal(t, sampleAlert(), got)
}

func TestDecodeAlert_Invalid(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"user_id":"u","latitude":1,"longitude":2}`,
		`{"id":"a","latitude":95,"longitude":2}`,
		`{"id":"a","latitude":1,"longitude":2,"radius_meters":-5}`,
	} {
		_, err := decodeAlert([]byte(payload))
		assert.Error(t, err, payload)
	}
}

func newTestSubscriber(size int) *AlertSubscriber {
	return &AlertSubscriber{logger: zerolog.Nop(), alerts: make(chan alerts.Alert, size)}
}

func TestHandleMessage(t *testing.T) {
	s := newTestSubscriber(1)
	data, err := encodeAlert(sampleAlert())
	require.NoError(t, err)

	var acked, nacked int
	ack := func() { acked++ }
	nack := func() { nacked++ }

	s.handleMessage(context.Background(), "m-1", data, ack, nack)
	assert.Equal(t, 1, acked)
	assert.Equal(t, "a-1", (<-s.Alerts()).ID)

	s.handleMessage(context.Background(), "m-2", []byte("garbage"), ack, nack)
	assert.Equal(t, 2, acked, "malformed alerts are acked and dropped")
	assert.Empty(t, s.Alerts())

	s.alerts <- sampleAlert()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.handleMessage(ctx, "m-3", data, ack, nack)
	assert.Equal(t, 1, nacked, "alerts that cannot be handed over are redelivered")
}
