package broadcast

import (
	"context"

	"retroboard/internal/domain"
)

// Broadcaster is the realtime fan-out abstraction: one logical channel per
// retro id carrying full snapshots. Implementations differ only in transport
// (in-process hub or Redis Pub/Sub); the mutation path is transport-agnostic.
type Broadcaster interface {
	// Publish delivers the snapshot to every current subscriber of the retro's
	// channel, including the subscriber that triggered the mutation.
	Publish(ctx context.Context, retroID string, snapshot *domain.Snapshot) error

	// Subscribe registers a new subscriber on the retro's channel. The
	// returned cancel function releases the subscription and closes the
	// channel. Subscribing to a retro with no publisher is valid.
	Subscribe(ctx context.Context, retroID string) (<-chan *domain.Snapshot, func(), error)
}
