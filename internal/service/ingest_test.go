package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/repository/sqlite"
	"github.com/taxpilot/dashboard-notifications/internal/watcher"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestIngestCreatesUnreadRecord(t *testing.T) {
	store := newSQLiteStore(t)
	s := newIngestService(zap.NewNop(), store, testPath, nil)

	requeue, err := s.handle(context.Background(), model.CategoryGetQuote, []byte(`{"title":"Quote request","desc":"Acme Inc","createdAt":1700000000000}`))
	require.NoError(t, err)
	assert.False(t, requeue)

	records := snapshotOf(t, store)
	require.Len(t, records, 1)
	assert.Equal(t, model.CategoryGetQuote, records[0].Type)
	assert.Equal(t, "Quote request", records[0].Title)
	assert.Equal(t, "Acme Inc", records[0].Desc)
	assert.True(t, records[0].Unread)
	assert.Equal(t, int64(1700000000000), records[0].CreatedAt)
}

func TestIngestRejectsBadEventsWithoutRequeue(t *testing.T) {
	store := newSQLiteStore(t)
	s := newIngestService(zap.NewNop(), store, testPath, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{`},
		{name: "missing title", body: `{"desc":"x"}`},
		{name: "title too long", body: `{"title":"` + strings.Repeat("a", MAX_TITLE_LENGTH+1) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requeue, err := s.handle(context.Background(), model.CategoryChat, []byte(tt.body))
			require.Error(t, err)
			assert.False(t, requeue)
		})
	}
	assert.Empty(t, snapshotOf(t, store))
}

type createFailingStore struct {
	*sqlite.Store
}

func (s *createFailingStore) Create(ctx context.Context, path string, fields map[string]any) (string, error) {
	return "", errors.New("store unavailable")
}

func TestIngestRequeuesOnStoreFailure(t *testing.T) {
	s := newIngestService(zap.NewNop(), &createFailingStore{Store: newSQLiteStore(t)}, testPath, nil)

	requeue, err := s.handle(context.Background(), model.CategoryChat, []byte(`{"title":"New chat"}`))
	require.Error(t, err)
	assert.True(t, requeue)
}

func TestIngestLogsClosedDeliveryChannel(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := newIngestService(zap.New(core), newSQLiteStore(t), testPath, nil)

	msgs := make(chan amqp.Delivery)
	close(msgs)
	s.consume(context.Background(), model.CategoryChat, "notifications.chat", msgs)

	entries := logs.FilterMessageSnippet("stopped consuming queue(notifications.chat)").All()
	require.Len(t, entries, 1)
}

func TestIngestStopsQuietlyOnCancel(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := newIngestService(zap.New(core), newSQLiteStore(t), testPath, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.consume(ctx, model.CategoryChat, "notifications.chat", make(chan amqp.Delivery))

	assert.Zero(t, logs.Len())
}

func snapshotOf(t *testing.T, store *sqlite.Store) []model.Notification {
	t.Helper()

	records := make(chan []model.Notification, 1)
	unsubscribe, err := watcher.New(zap.NewNop(), store, testPath).Subscribe(context.Background(), func(r []model.Notification) {
		select {
		case records <- r:
		default:
		}
	}, nil)
	require.NoError(t, err)
	defer unsubscribe()

	return <-records
}
