package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/reconciler"
	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
	"github.com/taxpilot/dashboard-notifications/internal/repository/sqlite"
	"github.com/taxpilot/dashboard-notifications/internal/watcher"
	"go.uber.org/zap"
)

const testPath = "notifications"

func newSQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(zap.NewNop(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func newTestFeed(store realtime.Store) *feedService {
	logger := zap.NewNop()
	return newFeedService(logger, watcher.New(logger, store, testPath), reconciler.New(logger, store, testPath))
}

func create(t *testing.T, store realtime.Store, fields map[string]any) string {
	t.Helper()
	id, err := store.Create(context.Background(), testPath, fields)
	require.NoError(t, err)
	return id
}

func waitForAggregate(t *testing.T, f Feed, cond func(model.Aggregate) bool) model.Aggregate {
	t.Helper()

	var last model.Aggregate
	require.Eventually(t, func() bool {
		agg, state, _ := f.Current()
		last = agg
		return state == FeedLive && cond(agg)
	}, 2*time.Second, 5*time.Millisecond, "last aggregate: %+v", last)
	return last
}

func totalIs(n int) func(model.Aggregate) bool {
	return func(agg model.Aggregate) bool { return agg.Total == n }
}
