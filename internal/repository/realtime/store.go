// Package realtime defines the contract of the realtime document store the
// dashboard watches: keyed collections that push a full snapshot on every
// committed change and accept atomic multi-path patches.
package realtime

import (
	"context"
	"encoding/json"
)

// Snapshot maps a record key to the record's stored fields. A nil or empty
// snapshot means the collection does not exist yet.
type Snapshot map[string]json.RawMessage

type SnapshotFunc func(Snapshot)

type Subscription interface {
	// Close stops delivery. It is safe to call more than once.
	Close() error
}

// LossNotifier is implemented by subscriptions whose change feed can drop
// after it was established. Lost yields at most one error and is never
// signalled by Close.
type LossNotifier interface {
	Lost() <-chan error
}

type Store interface {
	// Subscribe delivers the current content of path and then one full
	// snapshot per committed change until the subscription is closed or ctx
	// is done. Deliveries for one subscription never overlap.
	Subscribe(ctx context.Context, path string, fn SnapshotFunc) (Subscription, error)

	// MultiPathUpdate applies every "<key>/<field>" -> value pair of updates
	// in one atomic write. Keys that are not present in the collection are
	// skipped.
	MultiPathUpdate(ctx context.Context, path string, updates map[string]any) error

	// Create adds a record under a new key and returns the key.
	Create(ctx context.Context, path string, fields map[string]any) (string, error)

	Close() error
}
