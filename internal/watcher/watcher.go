// Package watcher keeps a live, ordered view of the notifications
// collection of a realtime store.
package watcher

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
	"go.uber.org/zap"
)

const DEFAULT_PATH = "notifications"

type Watcher struct {
	logger *zap.Logger
	store  realtime.Store
	path   string
}

func New(logger *zap.Logger, store realtime.Store, path string) *Watcher {
	if path == "" {
		path = DEFAULT_PATH
	}
	return &Watcher{
		logger: logger,
		store:  store,
		path:   path,
	}
}

func (w *Watcher) Path() string {
	return w.path
}

// Subscribe calls onSnapshot with the full collection, newest first, once
// for the initial state and once per remote change. onLost, when not nil,
// is called at most once if the store drops the change feed after it was
// established; no snapshot follows it. The returned func ends the
// subscription; it may be called any number of times and no callback
// starts after it returns. Callbacks must not call it synchronously.
func (w *Watcher) Subscribe(ctx context.Context, onSnapshot func([]model.Notification), onLost func(error)) (func(), error) {
	var (
		mu     sync.Mutex
		closed bool
	)

	sub, err := w.store.Subscribe(ctx, w.path, func(snapshot realtime.Snapshot) {
		records := Decode(w.logger, snapshot)

		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		onSnapshot(records)
	})
	if err != nil {
		return nil, &SubscriptionError{Path: w.path, Err: err}
	}

	stop := make(chan struct{})
	watching := make(chan struct{})
	if notifier, ok := sub.(realtime.LossNotifier); ok && onLost != nil {
		go func() {
			defer close(watching)

			select {
			case <-stop:
			case cause := <-notifier.Lost():
				mu.Lock()
				defer mu.Unlock()
				if closed {
					return
				}
				closed = true
				w.logger.Sugar().Errorf("lost live view of collection(%s): %s", w.path, cause.Error())
				onLost(&SubscriptionError{Path: w.path, Err: cause})
			}
		}()
	} else {
		close(watching)
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			mu.Lock()
			closed = true
			mu.Unlock()

			close(stop)
			<-watching

			if err := sub.Close(); err != nil {
				w.logger.Sugar().Warnf("failed to close subscription to collection(%s): %s", w.path, err.Error())
			}
		})
	}

	return unsubscribe, nil
}

// Decode converts a keyed snapshot into records ordered newest first.
// Each field is read on its own so one odd field never drops a record:
// a type that is not a string reads as an unknown category, unread is only
// true for a literal true, and createdAt accepts any JSON number. Entries
// that are not JSON objects, null included, are skipped.
func Decode(logger *zap.Logger, snapshot realtime.Snapshot) []model.Notification {
	records := make([]model.Notification, 0, len(snapshot))
	for id, raw := range snapshot {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			logger.Sugar().Warnf("skipping malformed notification(%s): %s", id, err.Error())
			continue
		}
		if fields == nil {
			logger.Sugar().Warnf("skipping empty notification(%s)", id)
			continue
		}

		records = append(records, model.Notification{
			ID:        id,
			Type:      model.Category(stringField(fields, "type")),
			Title:     stringField(fields, "title"),
			Desc:      stringField(fields, "desc"),
			Unread:    boolField(fields, "unread"),
			CreatedAt: timestampField(fields, realtime.CREATED_AT_FIELD),
		})
	}

	model.SortByRecency(records)
	return records
}

func stringField(fields map[string]json.RawMessage, name string) string {
	var v string
	if err := json.Unmarshal(fields[name], &v); err != nil {
		return ""
	}
	return v
}

func boolField(fields map[string]json.RawMessage, name string) bool {
	var v bool
	if err := json.Unmarshal(fields[name], &v); err != nil {
		return false
	}
	return v
}

// timestampField reads a millisecond timestamp, truncating fractions and
// exponent forms; anything else reads as 0.
func timestampField(fields map[string]json.RawMessage, name string) int64 {
	var v float64
	if err := json.Unmarshal(fields[name], &v); err != nil {
		return 0
	}
	return int64(v)
}
