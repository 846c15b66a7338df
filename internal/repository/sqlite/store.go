// Package sqlite is a single-process realtime store: documents live in a
// local SQLite file and change fan-out happens in memory after commit.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type Store struct {
	logger *zap.Logger
	db     *sqlx.DB

	// writeMu orders commits and the snapshots broadcast after them.
	writeMu sync.Mutex

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

// Open opens (or creates) the database at dbPath and applies pending
// migrations. ":memory:" gives a private in-memory database.
func Open(logger *zap.Logger, dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes
	// writers the way SQLite wants anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{
		logger: logger,
		db:     db,
		subs:   make(map[uint64]*subscription),
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	if err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	); err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

type documentRow struct {
	ID   string `db:"id"`
	Data string `db:"data"`
}

func (s *Store) load(ctx context.Context, path string) (realtime.Snapshot, error) {
	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, data FROM documents WHERE path = ?", path); err != nil {
		return nil, fmt.Errorf("loading collection %s: %w", path, err)
	}

	snapshot := make(realtime.Snapshot, len(rows))
	for _, row := range rows {
		snapshot[row.ID] = json.RawMessage(row.Data)
	}
	return snapshot, nil
}

func (s *Store) Subscribe(ctx context.Context, path string, fn realtime.SnapshotFunc) (realtime.Subscription, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	initial, err := s.load(ctx, path)
	if err != nil {
		return nil, realtime.SubscribeError(path, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, realtime.SubscribeError(path, realtime.ErrClosed)
	}
	s.nextID++
	sub := newSubscription(s, s.nextID, path, fn)
	s.subs[sub.id] = sub
	s.mu.Unlock()

	sub.push(initial)
	go sub.run()
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// broadcast must be called with writeMu held so snapshots reach every
// subscriber in commit order.
func (s *Store) broadcast(ctx context.Context, path string) {
	s.mu.Lock()
	var targets []*subscription
	for _, sub := range s.subs {
		if sub.path == path {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	snapshot, err := s.load(context.WithoutCancel(ctx), path)
	if err != nil {
		s.logger.Sugar().Errorf("failed to load snapshot of collection(%s) after commit: %s", path, err.Error())
		return
	}
	for _, sub := range targets {
		sub.push(snapshot)
	}
}

func (s *Store) MultiPathUpdate(ctx context.Context, path string, updates map[string]any) error {
	grouped, err := realtime.GroupUpdates(updates)
	if err != nil {
		return err
	}
	if len(grouped) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	changed := false
	for id, fields := range grouped {
		var data string
		err := tx.GetContext(ctx, &data, "SELECT data FROM documents WHERE path = ? AND id = ?", path, id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading document %s: %w", id, err)
		}

		patched, err := realtime.PatchDocument(json.RawMessage(data), fields)
		if err != nil {
			return fmt.Errorf("patching document %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE documents SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE path = ? AND id = ?",
			string(patched), path, id,
		); err != nil {
			return fmt.Errorf("updating document %s: %w", id, err)
		}
		changed = true
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}

	if changed {
		s.broadcast(ctx, path)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, path string, fields map[string]any) (string, error) {
	id, doc, err := realtime.NewDocument(fields)
	if err != nil {
		return "", err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (path, id, data) VALUES (?, ?, ?)",
		path, id, string(doc),
	); err != nil {
		return "", fmt.Errorf("creating document: %w", err)
	}

	s.broadcast(ctx, path)
	return id, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return s.db.Close()
}

func (s *Store) remove(id uint64) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}
