package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
	"go.uber.org/zap"
)

type recordingStore struct {
	mu      sync.Mutex
	updates []map[string]any
	paths   []string
	err     error
}

func (s *recordingStore) Subscribe(ctx context.Context, path string, fn realtime.SnapshotFunc) (realtime.Subscription, error) {
	return nil, errors.New("not used")
}

func (s *recordingStore) MultiPathUpdate(ctx context.Context, path string, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
	s.updates = append(s.updates, updates)
	return s.err
}

func (s *recordingStore) Create(ctx context.Context, path string, fields map[string]any) (string, error) {
	return "", nil
}

func (s *recordingStore) Close() error {
	return nil
}

func scenario() []model.Notification {
	return []model.Notification{
		{ID: "n1", Type: model.CategoryChat, Unread: true, CreatedAt: 2},
		{ID: "n2", Type: model.CategoryGetQuote, Unread: true, CreatedAt: 1},
		{ID: "n3", Type: model.CategoryChat, Unread: false, CreatedAt: 0},
	}
}

func TestMarkAllReadExcludesReadRecords(t *testing.T) {
	patch := MarkAllRead(scenario())

	assert.Equal(t, Patch{"n1/unread": false, "n2/unread": false}, patch)
	assert.Equal(t, []string{"n1", "n2"}, patch.IDs())
}

func TestMarkAllReadWithNothingUnreadIsEmptyEveryTime(t *testing.T) {
	snapshot := []model.Notification{{ID: "n3", Unread: false}}

	assert.Empty(t, MarkAllRead(snapshot))
	assert.Empty(t, MarkAllRead(snapshot))
	assert.Empty(t, MarkAllRead(nil))
}

func TestMarkOneRead(t *testing.T) {
	assert.Equal(t, Patch{"n7/unread": false}, MarkOneRead("n7"))
	assert.Empty(t, MarkOneRead(""))
}

func TestApplyIssuesOneWritePerCall(t *testing.T) {
	store := &recordingStore{}
	r := New(zap.NewNop(), store, "notifications")

	n, err := r.MarkAllRead(context.Background(), scenario())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, store.updates, 1)
	assert.Equal(t, "notifications", store.paths[0])
	assert.Equal(t, map[string]any{"n1/unread": false, "n2/unread": false}, store.updates[0])
}

func TestApplyEmptyPatchSkipsWrite(t *testing.T) {
	store := &recordingStore{}
	r := New(zap.NewNop(), store, "notifications")

	for range 2 {
		n, err := r.MarkAllRead(context.Background(), []model.Notification{{ID: "n3"}})
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Empty(t, store.updates)
}

func TestApplyFailureIsWriteError(t *testing.T) {
	cause := errors.New("permission denied")
	store := &recordingStore{err: cause}
	r := New(zap.NewNop(), store, "notifications")

	err := r.MarkOneRead(context.Background(), "n1")
	require.Error(t, err)

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, 1, writeErr.Paths)
	assert.ErrorIs(t, err, cause)
}

func TestMarkOneReadRequiresID(t *testing.T) {
	store := &recordingStore{}
	r := New(zap.NewNop(), store, "notifications")

	require.ErrorIs(t, r.MarkOneRead(context.Background(), ""), ErrInvalidID)
	assert.Empty(t, store.updates)
}
