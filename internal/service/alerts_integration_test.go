//go:build integration
// +build integration

package service

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/courtside/pbp-edit-monitor-go/internal/config"
)

func setupTestRabbitMQ(t *testing.T) (*config.RabbitMQConfig, func()) {
	ctx := context.Background()

	rabbitmqContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3.13-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start rabbitmq container: %v", err)
	}

	host, err := rabbitmqContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get host: %v", err)
	}

	port, err := rabbitmqContainer.MappedPort(ctx, "5672/tcp")
	if err != nil {
		t.Fatalf("Failed to get port: %v", err)
	}

	cfg := &config.RabbitMQConfig{
		Host:       host,
		Port:       port.Int(),
		User:       "guest",
		Password:   "guest",
		Exchange:   "test.exchange",
		Queue:      "test.queue",
		RoutingKey: "test.key",
		Enabled:    true,
	}

	cleanup := func() {
		if err := rabbitmqContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return cfg, cleanup
}

func TestNewAlertPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg, cleanup := setupTestRabbitMQ(t)
	defer cleanup()

	// Allow some time for RabbitMQ to be fully ready
	time.Sleep(2 * time.Second)

	ap, err := NewAlertPublisher(cfg)
	if err != nil {
		t.Fatalf("NewAlertPublisher() error = %v", err)
	}
	defer ap.Close()

	if ap == nil {
		t.Fatal("NewAlertPublisher() returned nil")
	}
}

func TestAlertPublisher_PublishAlert(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg, cleanup := setupTestRabbitMQ(t)
	defer cleanup()

	time.Sleep(2 * time.Second)

	ap, err := NewAlertPublisher(cfg)
	if err != nil {
		t.Fatalf("NewAlertPublisher() error = %v", err)
	}
	defer ap.Close()

	alert := EditAlert{
		GameID:         "0022500001",
		ActionNumber:   7,
		Kind:           AlertKindEdit,
		OldDescription: "MISS Smith 15' Jump Shot",
		NewDescription: "Smith 15' Jump Shot (2 PTS)",
		TimeDiff:       120,
		FieldsChanged:  []string{"description"},
		DetectedAt:     time.Now(),
	}

	if err := ap.PublishAlert(context.Background(), alert); err != nil {
		t.Errorf("PublishAlert() error = %v", err)
	}
}

func TestAlertPublisher_IsHealthy(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg, cleanup := setupTestRabbitMQ(t)
	defer cleanup()

	time.Sleep(2 * time.Second)

	ap, err := NewAlertPublisher(cfg)
	if err != nil {
		t.Fatalf("NewAlertPublisher() error = %v", err)
	}
	defer ap.Close()

	if !ap.IsHealthy() {
		t.Error("IsHealthy() = false, want true")
	}

	// Close and check unhealthy
	ap.Close()
	if ap.IsHealthy() {
		t.Error("IsHealthy() after Close() = true, want false")
	}
}
