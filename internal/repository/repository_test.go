package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxpilot/dashboard-notifications/internal/config"
	"github.com/taxpilot/dashboard-notifications/internal/repository/sqlite"
	"go.uber.org/zap"
)

func TestNewSQLite(t *testing.T) {
	store, err := New(context.Background(), zap.NewNop(), config.StoreConfig{
		Driver:     config.STORE_DRIVER_SQLITE,
		SQLitePath: filepath.Join(t.TempDir(), "notifications.db"),
	})
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &sqlite.Store{}, store)
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), zap.NewNop(), config.StoreConfig{Driver: "firebase"})
	require.Error(t, err)
}
