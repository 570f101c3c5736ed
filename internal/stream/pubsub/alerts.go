// Package pubsub carries emergency alerts over Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gpubsub "cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/alerts"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// alertMessage is the wire format of an alert.
type alertMessage struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RadiusMeters float64   `json:"radius_meters,omitempty"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func encodeAlert(a alerts.Alert) ([]byte, error) {
	return json.Marshal(alertMessage{
		ID:           a.ID,
		UserID:       a.UserID,
		Latitude:     a.Origin.Lat,
		Longitude:    a.Origin.Lon,
		RadiusMeters: a.RadiusMeters,
		Message:      a.Message,
		CreatedAt:    a.CreatedAt.UTC(),
	})
}

func decodeAlert(data []byte) (alerts.Alert, error) {
	var msg alertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return alerts.Alert{}, fmt.Errorf("decode alert: %w", err)
	}

	a := alerts.Alert{
		ID:           msg.ID,
		UserID:       msg.UserID,
		Origin:       polyline.Coordinate{Lat: msg.Latitude, Lon: msg.Longitude},
		RadiusMeters: msg.RadiusMeters,
		Message:      msg.Message,
		CreatedAt:    msg.CreatedAt,
	}
	if err := a.Validate(); err != nil {
		return alerts.Alert{}, err
	}
	return a, nil
}

// SubscriberConfig holds configuration for the alert subscriber.
type SubscriberConfig struct {
	ProjectID        string
	SubscriptionName string
	// BufferSize of the alert channel (default: 64).
	BufferSize int
	Logger     zerolog.Logger
}

// AlertSubscriber receives alerts from a subscription and hands them to a channel.
type AlertSubscriber struct {
	client           *gpubsub.Client
	subscriber       *gpubsub.Subscriber
	subscriptionName string
	logger           zerolog.Logger
	alerts           chan alerts.Alert
}

// NewAlertSubscriber creates a subscriber.
func NewAlertSubscriber(ctx context.Context, cfg SubscriberConfig) (*AlertSubscriber, error) {
	client, err := gpubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 100
	subscriber.ReceiveSettings.MaxExtension = time.Minute

	size := cfg.BufferSize
	if size <= 0 {
		size = 64
	}

	return &AlertSubscriber{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		logger:           cfg.Logger,
		alerts:           make(chan alerts.Alert, size),
	}, nil
}

// Alerts returns the channel alerts are delivered on. It is closed when Start returns.
func (s *AlertSubscriber) Alerts() <-chan alerts.Alert {
	return s.alerts
}

// Start receives messages until ctx is done.
func (s *AlertSubscriber) Start(ctx context.Context) error {
	defer close(s.alerts)

	s.logger.Info().
		Str("subscription", s.subscriptionName).
		Msg("starting alert subscriber")

	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *gpubsub.Message) {
		s.handleMessage(ctx, msg.ID, msg.Data, msg.Ack, msg.Nack)
	})
}

// Close closes the Pub/Sub client.
func (s *AlertSubscriber) Close() error {
	return s.client.Close()
}

// handleMessage acks malformed alerts so they are not redelivered, and nacks
// alerts that could not be handed over before ctx ended.
func (s *AlertSubscriber) handleMessage(ctx context.Context, id string, data []byte, ack, nack func()) {
	logger := s.logger.With().Str("message_id", id).Logger()

	a, err := decodeAlert(data)
	if err != nil {
		logger.Error().Err(err).Msg("failed to parse alert")
		ack()
		return
	}

	select {
	case s.alerts <- a:
		logger.Debug().Str("alert_id", a.ID).Msg("received alert")
		ack()
	case <-ctx.Done():
		nack()
	}
}

// PublisherConfig holds configuration for the alert publisher.
type PublisherConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// AlertPublisher broadcasts alerts to a topic.
type AlertPublisher struct {
	client    *gpubsub.Client
	publisher *gpubsub.Publisher
	topicName string
	logger    zerolog.Logger
}

// NewAlertPublisher creates a publisher.
func NewAlertPublisher(ctx context.Context, cfg PublisherConfig) (*AlertPublisher, error) {
	client, err := gpubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &AlertPublisher{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
		topicName: cfg.TopicName,
		logger:    cfg.Logger,
	}, nil
}

// Publish broadcasts an alert and waits for the server to accept it.
func (p *AlertPublisher) Publish(ctx context.Context, a alerts.Alert) error {
	if err := a.Validate(); err != nil {
		return err
	}

	data, err := encodeAlert(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	result := p.publisher.Publish(ctx, &gpubsub.Message{
		Data:       data,
		Attributes: map[string]string{"alert_id": a.ID},
	})
	serverID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish alert %s: %w", a.ID, err)
	}

	p.logger.Info().
		Str("alert_id", a.ID).
		Str("message_id", serverID).
		Str("topic", p.topicName).
		Msg("alert published")
	return nil
}

// Close flushes pending messages and closes the client.
func (p *AlertPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
