package postgres

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
	"go.uber.org/zap"
)

// Store keeps documents in one JSONB table. Every committed write sends
// pg_notify(realtime_changes, <path>); subscribers hold a pooled connection
// that LISTENs on that channel.
type Store struct {
	logger *zap.Logger
	db     *pgxpool.Pool
}

func New(logger *zap.Logger, db *pgxpool.Pool) *Store {
	return &Store{
		logger: logger,
		db:     db,
	}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func load(ctx context.Context, q querier, path string) (realtime.Snapshot, error) {
	rows, err := q.Query(ctx, "SELECT d.id, d.data FROM realtime_documents d WHERE d.path = $1", path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshot := make(realtime.Snapshot)
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		snapshot[id] = json.RawMessage(data)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshot, nil
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	lost   chan error
	once   sync.Once
}

var _ realtime.LossNotifier = (*subscription)(nil)

func (sub *subscription) Lost() <-chan error {
	return sub.lost
}

func (sub *subscription) Close() error {
	sub.once.Do(func() {
		sub.cancel()
		<-sub.done
	})
	return nil
}

func (s *Store) Subscribe(ctx context.Context, path string, fn realtime.SnapshotFunc) (realtime.Subscription, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, realtime.SubscribeError(path, err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+CHANGES_CHANNEL); err != nil {
		conn.Release()
		return nil, realtime.SubscribeError(path, err)
	}

	initial, err := load(ctx, conn, path)
	if err != nil {
		conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
		return nil, realtime.SubscribeError(path, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		cancel: cancel,
		done:   make(chan struct{}),
		lost:   make(chan error, 1),
	}

	go func() {
		defer close(sub.done)
		defer conn.Release()
		defer conn.Exec(context.Background(), "UNLISTEN *")

		fn(initial)
		for {
			n, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					lostErr := realtime.FeedLostError(path, err)
					s.logger.Sugar().Errorf("collection(%s) is stale: %s", path, lostErr.Error())
					sub.lost <- lostErr
				}
				return
			}
			if n.Payload != path {
				continue
			}

			snapshot, err := load(subCtx, conn, path)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				s.logger.Sugar().Errorf("failed to load snapshot of collection(%s) from postgres: %s", path, err.Error())
				continue
			}
			fn(snapshot)
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

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	changed := false
	for id, fields := range grouped {
		for field, value := range fields {
			encoded, err := json.Marshal(value)
			if err != nil {
				return err
			}
			tag, err := tx.Exec(
				ctx,
				`
				UPDATE realtime_documents
				SET data = jsonb_set(data, $3::text[], $4::jsonb, true), updated_at = NOW()
				WHERE path = $1 AND id = $2
				`,
				path, id, []string{field}, string(encoded),
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() > 0 {
				changed = true
			}
		}
	}

	if changed {
		if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", CHANGES_CHANNEL, path); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) Create(ctx context.Context, path string, fields map[string]any) (string, error) {
	id, doc, err := realtime.NewDocument(fields)
	if err != nil {
		return "", err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "INSERT INTO realtime_documents(path, id, data) VALUES($1, $2, $3::jsonb)", path, id, string(doc)); err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", CHANGES_CHANNEL, path); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	return id, nil
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
}
