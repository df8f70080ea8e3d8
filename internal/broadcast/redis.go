package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"retroboard/internal/domain"
	"retroboard/pkg/redis"

	"go.uber.org/zap"
)

// RedisBroadcaster fans snapshots out over Redis Pub/Sub, one channel per
// retro id. Selected when REDIS_URL is configured so multiple service
// instances share one broadcast plane.
type RedisBroadcaster struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisBroadcaster(client *redis.Client, logger *zap.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, logger: logger}
}

// Publish JSON-encodes the snapshot and publishes it on the retro's channel.
func (b *RedisBroadcaster) Publish(ctx context.Context, retroID string, snapshot *domain.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for retro %s: %w", retroID, err)
	}
	channel := b.client.KeyBuilder.KeyRetroChannel(retroID)
	if err := b.client.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("failed to publish snapshot for retro %s: %w", retroID, err)
	}
	return nil
}

// Subscribe opens a Redis subscription on the retro's channel and decodes
// incoming payloads. The cancel function closes the underlying subscription,
// which in turn closes the returned channel.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, retroID string) (<-chan *domain.Snapshot, func(), error) {
	channel := b.client.KeyBuilder.KeyRetroChannel(retroID)
	ps := b.client.Subscribe(ctx, channel)

	// Confirm the subscription before handing the channel to the caller so
	// no snapshot published after Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to retro %s: %w", retroID, err)
	}

	out := make(chan *domain.Snapshot, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var snapshot domain.Snapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
				b.logger.Warn("discarding malformed snapshot payload",
					zap.String("retro_id", retroID),
					zap.Error(err))
				continue
			}
			select {
			case out <- &snapshot:
			default:
				b.logger.Warn("dropping snapshot for slow subscriber",
					zap.String("retro_id", retroID))
			}
		}
	}()

	cancel := func() { _ = ps.Close() }
	return out, cancel, nil
}
