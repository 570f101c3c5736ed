// Package mqtt receives live watcher positions over MQTT.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/navigation"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// DefaultTopic matches one position topic per watcher; the wildcard level is the watcher id.
const DefaultTopic = "saferoute/watchers/+/position"

// Config holds connection settings.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string

	// ConnectTimeout bounds the initial connection (default: 10 seconds).
	ConnectTimeout time.Duration
}

// Connect opens a client connection to the broker.
func Connect(cfg Config) (paho.Client, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect: timed out after %s", timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return client, nil
}

// Sample is one decoded position report.
type Sample struct {
	WatcherID string
	Position  navigation.Position
}

// SubscriberConfig holds configuration for a position subscriber.
type SubscriberConfig struct {
	// Topic to subscribe to (default: DefaultTopic).
	Topic string
	// QoS for the subscription (default: 1).
	QoS byte
	// BufferSize of the sample channel (default: 256). Samples arriving while the
	// buffer is full are dropped.
	BufferSize int
	Logger     zerolog.Logger
}

// PositionSubscriber decodes position messages into a channel of samples.
type PositionSubscriber struct {
	client paho.Client
	topic  string
	qos    byte
	logger zerolog.Logger

	mu      sync.Mutex
	closed  bool
	samples chan Sample
}

// NewPositionSubscriber creates a subscriber on client.
func NewPositionSubscriber(client paho.Client, cfg SubscriberConfig) *PositionSubscriber {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	qos := cfg.QoS
	if qos == 0 {
		qos = 1
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 256
	}

	return &PositionSubscriber{
		client:  client,
		topic:   topic,
		qos:     qos,
		logger:  cfg.Logger,
		samples: make(chan Sample, size),
	}
}

// Samples returns the channel samples are delivered on. It is closed by Stop.
func (s *PositionSubscriber) Samples() <-chan Sample {
	return s.samples
}

// Start subscribes to the position topic.
func (s *PositionSubscriber) Start() error {
	token := s.client.Subscribe(s.topic, s.qos, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", s.topic, err)
	}

	s.logger.Info().Str("topic", s.topic).Msg("subscribed to watcher positions")
	return nil
}

// Stop unsubscribes and closes the sample channel.
func (s *PositionSubscriber) Stop() error {
	var err error
	if s.client != nil {
		token := s.client.Unsubscribe(s.topic)
		token.Wait()
		err = token.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.samples)
	}
	return err
}

type positionMessage struct {
	WatcherID string   `json:"watcher_id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

func (s *PositionSubscriber) handleMessage(_ paho.Client, msg paho.Message) {
	sample, err := decodeSample(msg.Topic(), msg.Payload())
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("invalid position message")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.samples <- sample:
	default:
		s.logger.Warn().Str("watcher_id", sample.WatcherID).Msg("position buffer full, dropping sample")
	}
}

// decodeSample parses a payload. The watcher id comes from the payload or, when
// absent, from the topic level after "watchers".
func decodeSample(topic string, payload []byte) (Sample, error) {
	var raw positionMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Sample{}, fmt.Errorf("decode: %w", err)
	}

	watcherID := raw.WatcherID
	if watcherID == "" {
		watcherID = watcherFromTopic(topic)
	}
	if watcherID == "" {
		return Sample{}, errors.New("watcher_id: required")
	}

	point := polyline.Coordinate{Lat: raw.Latitude, Lon: raw.Longitude}
	if !point.Valid() {
		return Sample{}, errors.New("latitude/longitude: out of range")
	}

	pos := navigation.Position{
		Coordinate: point,
		Heading:    raw.Heading,
		Speed:      raw.Speed,
	}
	if raw.Timestamp > 0 {
		pos.RecordedAt = time.Unix(raw.Timestamp, 0).UTC()
	}

	return Sample{WatcherID: watcherID, Position: pos}, nil
}

func watcherFromTopic(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "watchers" {
			return parts[i+1]
		}
	}
	return ""
}
