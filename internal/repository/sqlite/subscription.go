package sqlite

import (
	"sync"

	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
)

// subscription delivers queued snapshots in order from its own goroutine,
// so a slow consumer never blocks writers.
type subscription struct {
	store *Store
	id    uint64
	path  string
	fn    realtime.SnapshotFunc

	mu    sync.Mutex
	queue []realtime.Snapshot
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newSubscription(store *Store, id uint64, path string, fn realtime.SnapshotFunc) *subscription {
	return &subscription{
		store: store,
		id:    id,
		path:  path,
		fn:    fn,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (sub *subscription) push(snapshot realtime.Snapshot) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, snapshot)
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *subscription) pop() (realtime.Snapshot, bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if len(sub.queue) == 0 {
		return nil, false
	}
	snapshot := sub.queue[0]
	sub.queue = sub.queue[1:]
	return snapshot, true
}

func (sub *subscription) run() {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.wake:
		}

		for {
			snapshot, ok := sub.pop()
			if !ok {
				break
			}
			select {
			case <-sub.done:
				return
			default:
			}
			sub.fn(snapshot)
		}
	}
}

func (sub *subscription) Close() error {
	sub.once.Do(func() {
		close(sub.done)
		sub.store.remove(sub.id)
	})
	return nil
}
