package broadcast

import (
	"context"
	"sync"

	"retroboard/internal/domain"

	"go.uber.org/zap"
)

// subscriberBuffer is the per-subscriber channel depth. Snapshots are
// full-state replacements, so a slow consumer that drops an intermediate
// snapshot converges on the next delivery.
const subscriberBuffer = 8

// MemoryBroadcaster is the in-process fan-out hub used when no Redis broker
// is configured. Suitable for single-instance deployments.
type MemoryBroadcaster struct {
	mu       sync.RWMutex
	channels map[string]map[int]chan *domain.Snapshot
	nextID   int
	logger   *zap.Logger
}

func NewMemoryBroadcaster(logger *zap.Logger) *MemoryBroadcaster {
	return &MemoryBroadcaster{
		channels: make(map[string]map[int]chan *domain.Snapshot),
		logger:   logger,
	}
}

// Publish delivers the snapshot to every subscriber of the retro's channel.
// Delivery never blocks the mutation path: a subscriber whose buffer is full
// misses this snapshot and catches up on the next one.
func (b *MemoryBroadcaster) Publish(_ context.Context, retroID string, snapshot *domain.Snapshot) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.channels[retroID] {
		select {
		case ch <- snapshot:
		default:
			b.logger.Warn("dropping snapshot for slow subscriber",
				zap.String("retro_id", retroID),
				zap.Int("subscriber_id", id))
		}
	}
	return nil
}

// Subscribe registers a subscriber on the retro's channel. The cancel
// function is idempotent and closes the returned channel.
func (b *MemoryBroadcaster) Subscribe(_ context.Context, retroID string) (<-chan *domain.Snapshot, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channels[retroID] == nil {
		b.channels[retroID] = make(map[int]chan *domain.Snapshot)
	}
	id := b.nextID
	b.nextID++
	ch := make(chan *domain.Snapshot, subscriberBuffer)
	b.channels[retroID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.channels[retroID], id)
			if len(b.channels[retroID]) == 0 {
				delete(b.channels, retroID)
			}
			close(ch)
		})
	}
	return ch, cancel, nil
}
