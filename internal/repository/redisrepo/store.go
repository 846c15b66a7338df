package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
	"go.uber.org/zap"
)

const MAX_TX_RETRIES = 16

// Store keeps each collection in one hash (key -> JSON document) and
// announces committed changes on a pub/sub channel.
type Store struct {
	logger *zap.Logger
	rdb    *redis.Client
}

func New(logger *zap.Logger, rdb *redis.Client) *Store {
	return &Store{
		logger: logger,
		rdb:    rdb,
	}
}

func (s *Store) load(ctx context.Context, path string) (realtime.Snapshot, error) {
	values, err := s.rdb.HGetAll(ctx, CollectionKey(path)).Result()
	if err != nil {
		return nil, err
	}

	snapshot := make(realtime.Snapshot, len(values))
	for key, value := range values {
		snapshot[key] = json.RawMessage(value)
	}
	return snapshot, nil
}

type subscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	lost   chan error
	once   sync.Once
	err    error
}

var _ realtime.LossNotifier = (*subscription)(nil)

func (sub *subscription) Lost() <-chan error {
	return sub.lost
}

func (sub *subscription) Close() error {
	sub.once.Do(func() {
		sub.cancel()
		sub.err = sub.pubsub.Close()
	})
	return sub.err
}

func (s *Store) Subscribe(ctx context.Context, path string, fn realtime.SnapshotFunc) (realtime.Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, ChangesChannel(path))
	// Subscribe is lazy; Receive waits for the confirmation so that a
	// refused connection fails here instead of in the delivery loop.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, realtime.SubscribeError(path, err)
	}

	// The channel is subscribed before the first read, so no change can
	// slip between the initial snapshot and the first message.
	initial, err := s.load(ctx, path)
	if err != nil {
		pubsub.Close()
		return nil, realtime.SubscribeError(path, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		pubsub: pubsub,
		cancel: cancel,
		lost:   make(chan error, 1),
	}
	messages := pubsub.Channel()

	go func() {
		defer sub.Close()

		fn(initial)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					if subCtx.Err() == nil {
						err := realtime.FeedLostError(path, errors.New("pubsub channel closed"))
						s.logger.Sugar().Errorf("collection(%s) is stale: %s", path, err.Error())
						sub.lost <- err
					}
					return
				}
				snapshot, err := s.load(subCtx, path)
				if err != nil {
					if subCtx.Err() != nil {
						return
					}
					s.logger.Sugar().Errorf("failed to load snapshot of collection(%s) from redis: %s", path, err.Error())
					continue
				}
				if subCtx.Err() != nil {
					return
				}
				fn(snapshot)
			}
		}
	}()

	return sub, nil
}

func (s *Store) MultiPathUpdate(ctx context.Context, path string, updates map[string]any) error {
	grouped, err := realtime.GroupUpdates(updates)
	if err != nil {
		return err
	}
	if len(grouped) == 0 {
		return nil
	}

	key := CollectionKey(path)
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}

	txf := func(tx *redis.Tx) error {
		current, err := tx.HMGet(ctx, key, ids...).Result()
		if err != nil {
			return err
		}

		patched := make(map[string]any, len(ids))
		for i, id := range ids {
			raw, ok := current[i].(string)
			if !ok {
				continue
			}
			doc, err := realtime.PatchDocument(json.RawMessage(raw), grouped[id])
			if err != nil {
				return err
			}
			patched[id] = string(doc)
		}
		if len(patched) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, patched)
			pipe.Publish(ctx, ChangesChannel(path), "update")
			return nil
		})
		return err
	}

	for range MAX_TX_RETRIES {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return realtime.ErrConflict
}

func (s *Store) Create(ctx context.Context, path string, fields map[string]any) (string, error) {
	id, doc, err := realtime.NewDocument(fields)
	if err != nil {
		return "", err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, CollectionKey(path), id, string(doc))
		pipe.Publish(ctx, ChangesChannel(path), "create")
		return nil
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
