// Package rabbitmq publishes alert notifications to RabbitMQ.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/alerts"
)

var _ alerts.Notifier = (*NotificationPublisher)(nil)

// Default topology.
const (
	DefaultExchange = "saferoute.notifications"
	DefaultQueue    = "alert_notifications"
)

// Dial connects to a broker.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}
	return conn, nil
}

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// PublisherConfig holds configuration for the publisher.
type PublisherConfig struct {
	Exchange string
	Queue    string
	Logger   zerolog.Logger
}

// NotificationPublisher publishes notifications to a fanout exchange for the
// delivery service.
type NotificationPublisher struct {
	ch       channel
	exchange string
	logger   zerolog.Logger
}

// NewNotificationPublisher declares the exchange and queue and binds them.
func NewNotificationPublisher(conn *amqp.Connection, cfg PublisherConfig) (*NotificationPublisher, error) {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, "", exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &NotificationPublisher{ch: ch, exchange: exchange, logger: cfg.Logger}, nil
}

type notificationMessage struct {
	AlertID        string  `json:"alert_id"`
	WatcherID      string  `json:"watcher_id"`
	DistanceMeters float64 `json:"distance_meters"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Message        string  `json:"message,omitempty"`
	Timestamp      int64   `json:"timestamp"`
}

// Notify publishes one notification.
func (p *NotificationPublisher) Notify(ctx context.Context, n alerts.Notification) error {
	body, err := json.Marshal(notificationMessage{
		AlertID:        n.AlertID,
		WatcherID:      n.WatcherID,
		DistanceMeters: n.DistanceMeters,
		Latitude:       n.Alert.Origin.Lat,
		Longitude:      n.Alert.Origin.Lon,
		Message:        n.Alert.Message,
		Timestamp:      n.NotifiedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.AlertID + ":" + n.WatcherID,
		Timestamp:    n.NotifiedAt,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	p.logger.Info().
		Str("alert_id", n.AlertID).
		Str("watcher_id", n.WatcherID).
		Msg("notification published")
	return nil
}

// Close closes the channel.
func (p *NotificationPublisher) Close() error {
	return p.ch.Close()
}
