package mqtt

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (f *fakeMessage) Duplicate() bool   { return false }
func (f *fakeMessage) Qos() byte         { return 1 }
func (f *fakeMessage) Retained() bool    { return false }
func (f *fakeMessage) Topic() string     { return f.topic }
func (f *fakeMessage) MessageID() uint16 { return 0 }
func (f *fakeMessage) Payload() []byte   { return f.payload }
func (f *fakeMessage) Ack()              {}

func TestDecodeSample(t *testing.T) {
	sample, err := decodeSample("saferoute/watchers/w-42/position",
		[]byte(`{"latitude":12.9716,"longitude":77.5946,"heading":90.5,"timestamp":1715003456}`))
	require.NoError(t, err)

	assert.Equal(t, "w-42", sample.WatcherID)
	assert.Equal(t, 12.9716, sample.Position.Lat)
	assert.Equal(t, 77.5946, sample.Position.Lon)
	require.NotNil(t, sample.Position.Heading)
	assert.Equal(t, 90.5, *sample.Position.Heading)
	assert.Nil(t, sample.Position.Speed)
	assert.True(t, sample.Position.RecordedAt.Equal(time.Unix(1715003456, 0)))
}

func TestDecodeSample_PayloadIDWins(t *testing.T) {
	sample, err := decodeSample("saferoute/watchers/topic-id/position",
		[]byte(`{"watcher_id":"payload-id","latitude":1,"longitude":2}`))
	require.NoError(t, err)
	assert.Equal(t, "payload-id", sample.WatcherID)
	assert.True(t, sample.Position.RecordedAt.IsZero())
}

func TestDecodeSample_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"not json", DefaultTopic, "invalid"},
		{"no watcher", "positions", `{"latitude":1,"longitude":2}`},
		{"latitude out of range", "saferoute/watchers/w/position", `{"latitude":91,"longitude":2}`},
		{"longitude out of range", "saferoute/watchers/w/position", `{"latitude":1,"longitude":-200}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeSample(tt.topic, []byte(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestHandleMessage(t *testing.T) {
	s := NewPositionSubscriber(nil, SubscriberConfig{BufferSize: 1, Logger: zerolog.Nop()})

	s.handleMessage(nil, &fakeMessage{topic: "saferoute/watchers/w-1/position", payload: []byte(`{"latitude":1,"longitude":2}`)})
	s.handleMessage(nil, &fakeMessage{topic: "saferoute/watchers/w-2/position", payload: []byte(`{"latitude":3,"longitude":4}`)})
	s.handleMessage(nil, &fakeMessage{topic: "saferoute/watchers/w-3/position", payload: []byte(`bad`)})

	require.Len(t, s.Samples(), 1, "full buffer drops samples")
	got := <-s.Samples()
	assert.Equal(t, "w-1", got.WatcherID)

	require.NoError(t, s.Stop())
	s.handleMessage(nil, &fakeMessage{topic: "saferoute/watchers/w-1/position", payload: []byte(`{"latitude":1,"longitude":2}`)})
	_, open := <-s.Samples()
	assert.False(t, open)
}
