// Package cache mirrors live game summaries into Redis for dashboard reads.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/courtside/pbp-edit-monitor-go/internal/db/models"
)

// TTL constants
const (
	LiveGameTTL  = 2 * time.Hour
	FinalGameTTL = 6 * time.Hour
)

// LiveWriter handles writing game summaries to Redis.
type LiveWriter struct {
	client *redis.Client
}

// NewLiveWriter creates a writer from a Redis URL.
func NewLiveWriter(url string) (*LiveWriter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &LiveWriter{client: redis.NewClient(opts)}, nil
}

// WriteGameSummary stores the game's current snapshot under a per-game key.
func (w *LiveWriter) WriteGameSummary(ctx context.Context, game *models.Game) error {
	key := fmt.Sprintf("game:%s:summary", game.GameID)

	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshaling game: %w", err)
	}

	ttl := LiveGameTTL
	if game.GameStatus == models.GameStatusFinal {
		ttl = FinalGameTTL
	}

	return w.client.Set(ctx, key, data, ttl).Err()
}

// Ping verifies connectivity.
func (w *LiveWriter) Ping(ctx context.Context) error {
	return w.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (w *LiveWriter) Close() error {
	return w.client.Close()
}
