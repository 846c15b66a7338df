package service

import (
	"context"
	"sync"

	"github.com/taxpilot/dashboard-notifications/internal/aggregator"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/reconciler"
	"github.com/taxpilot/dashboard-notifications/internal/watcher"
	"go.uber.org/zap"
)

type FeedState int

const (
	FeedConnecting FeedState = iota
	FeedLive
	FeedFailed
)

func (s FeedState) String() string {
	switch s {
	case FeedConnecting:
		return "connecting"
	case FeedLive:
		return "live"
	case FeedFailed:
		return "failed"
	}
	return "unknown"
}

// feedService is the dashboard side of the notifications collection: one
// live subscription, the aggregate of the newest snapshot, and the entry
// points for marking records read. Local state only ever changes when a
// snapshot arrives, never when a write is issued.
type feedService struct {
	logger     *zap.Logger
	watcher    *watcher.Watcher
	reconciler *reconciler.Reconciler

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu          sync.RWMutex
	current     model.Aggregate
	state       FeedState
	err         error
	handlers    map[uint64]func(model.Aggregate)
	nextHandler uint64
	version     uint64
	started     bool
	stopped     bool
	lost        bool
	unsubscribe func()

	// mailbox holds at most the newest unprocessed snapshot.
	mailbox chan []model.Notification
	done    chan struct{}
	wg      sync.WaitGroup
}

func newFeedService(logger *zap.Logger, w *watcher.Watcher, r *reconciler.Reconciler) *feedService {
	return &feedService{
		logger:     logger,
		watcher:    w,
		reconciler: r,
		current:    model.EmptyAggregate(),
		handlers:   make(map[uint64]func(model.Aggregate)),
		mailbox:    make(chan []model.Notification, 1),
		done:       make(chan struct{}),
	}
}

// Start establishes the subscription. A failure leaves the feed in
// FeedFailed and may be retried by calling Start again.
func (f *feedService) Start(ctx context.Context) error {
	f.lifecycle.Lock()
	defer f.lifecycle.Unlock()

	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return ErrFeedStarted
	}
	f.started = true
	f.state = FeedConnecting
	f.err = nil
	f.mu.Unlock()

	unsubscribe, err := f.watcher.Subscribe(ctx, f.offer, f.lose)
	if err != nil {
		f.logger.Sugar().Errorf("failed to subscribe to collection(%s): %s", f.watcher.Path(), err.Error())

		f.mu.Lock()
		f.started = false
		f.state = FeedFailed
		f.err = err
		f.mu.Unlock()
		return err
	}

	f.mu.Lock()
	f.unsubscribe = unsubscribe
	f.mu.Unlock()

	f.wg.Add(1)
	go f.run()

	return nil
}

// Stop ends the subscription. Calling it twice, or without a successful
// Start, does nothing.
func (f *feedService) Stop() {
	f.lifecycle.Lock()
	defer f.lifecycle.Unlock()

	f.mu.Lock()
	if !f.started || f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	unsubscribe := f.unsubscribe
	f.mu.Unlock()

	unsubscribe()
	close(f.done)
	f.wg.Wait()
}

// lose moves the feed to FeedFailed when its change feed drops after it
// was established. The last aggregate is kept but no longer updates.
func (f *feedService) lose(err error) {
	f.logger.Sugar().Errorf("notification feed of collection(%s) is stale until restart: %s", f.watcher.Path(), err.Error())

	f.mu.Lock()
	f.lost = true
	f.state = FeedFailed
	f.err = err
	f.mu.Unlock()
}

// offer replaces any snapshot still waiting in the mailbox. Deliveries of
// one subscription are sequential, so the loop settles within two turns.
func (f *feedService) offer(records []model.Notification) {
	for {
		select {
		case f.mailbox <- records:
			return
		default:
		}
		select {
		case <-f.mailbox:
		default:
		}
	}
}

func (f *feedService) run() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			return
		case records := <-f.mailbox:
			f.publish(aggregator.Aggregate(records))
		}
	}
}

func (f *feedService) publish(agg model.Aggregate) {
	f.mu.Lock()
	f.version++
	agg.Version = f.version
	f.current = agg
	if !f.lost {
		f.state = FeedLive
		f.err = nil
	}
	handlers := make([]func(model.Aggregate), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(agg)
	}
}

func (f *feedService) Current() (model.Aggregate, FeedState, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current, f.state, f.err
}

// OnAggregateChange registers handler for every aggregate computed from
// now on. Handlers run on the feed's goroutine and should not block.
func (f *feedService) OnAggregateChange(handler func(model.Aggregate)) func() {
	f.mu.Lock()
	f.nextHandler++
	id := f.nextHandler
	f.handlers[id] = handler
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.handlers, id)
			f.mu.Unlock()
		})
	}
}

// RequestMarkAllRead marks read what the feed currently shows as unread.
func (f *feedService) RequestMarkAllRead(ctx context.Context) (int, error) {
	f.mu.RLock()
	seen := f.current.Ordered
	f.mu.RUnlock()

	return f.MarkAllReadSeen(ctx, seen)
}

// MarkAllReadSeen marks read the unread records of seen, the snapshot the
// user was looking at when asking. Anything newer stays unread.
func (f *feedService) MarkAllReadSeen(ctx context.Context, seen []model.Notification) (int, error) {
	return f.reconciler.MarkAllRead(ctx, seen)
}

func (f *feedService) RequestMarkOneRead(ctx context.Context, id string) error {
	return f.reconciler.MarkOneRead(ctx, id)
}
