package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/courtside/pbp-edit-monitor-go/internal/config"
	"github.com/courtside/pbp-edit-monitor-go/pkg/logger"
)

// AlertPublisher publishes detected edit alerts to a RabbitMQ topic exchange
// for downstream consumers (dashboard notifications, audit feeds).
type AlertPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	mu      sync.RWMutex
}

// NewAlertPublisher connects to RabbitMQ and declares the edit-alert exchange
// and queue.
func NewAlertPublisher(cfg *config.RabbitMQConfig) (*AlertPublisher, error) {
	ap := &AlertPublisher{
		config: cfg,
	}

	if err := ap.connect(); err != nil {
		return nil, err
	}

	return ap, nil
}

func (ap *AlertPublisher) connect() error {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		ap.config.User, ap.config.Password, ap.config.Host, ap.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	// Declare exchange
	if err := ch.ExchangeDeclare(
		ap.config.Exchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare queue
	_, err = ch.QueueDeclare(
		ap.config.Queue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		amqp.Table{
			"x-message-ttl": 86400000, // 24 hours
		},
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind queue to exchange
	if err := ch.QueueBind(
		ap.config.Queue,      // queue name
		ap.config.RoutingKey, // routing key
		ap.config.Exchange,   // exchange
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	ap.conn = conn
	ap.channel = ch

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", ap.config.Exchange),
		zap.String("queue", ap.config.Queue),
	)

	return nil
}

// PublishAlert publishes one edit alert as a persistent JSON message.
func (ap *AlertPublisher) PublishAlert(ctx context.Context, alert EditAlert) error {
	ap.mu.RLock()
	defer ap.mu.RUnlock()

	if ap.channel == nil {
		return fmt.Errorf("publisher not connected")
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	err = ap.channel.PublishWithContext(ctx,
		ap.config.Exchange,
		ap.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	return nil
}

// IsHealthy reports whether the underlying connection is open.
func (ap *AlertPublisher) IsHealthy() bool {
	ap.mu.RLock()
	defer ap.mu.RUnlock()
	return ap.conn != nil && !ap.conn.IsClosed()
}

// Close shuts down the channel and connection.
func (ap *AlertPublisher) Close() error {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	if ap.channel != nil {
		_ = ap.channel.Close()
	}
	if ap.conn != nil {
		return ap.conn.Close()
	}
	return nil
}

var _ AlertSink = (*AlertPublisher)(nil)
