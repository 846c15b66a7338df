package realtime

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitUpdatePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantKey   string
		wantField string
		wantErr   bool
	}{
		{name: "key and field", path: "n1/unread", wantKey: "n1", wantField: "unread"},
		{name: "missing field", path: "n1/", wantErr: true},
		{name: "missing key", path: "/unread", wantErr: true},
		{name: "no separator", path: "n1", wantErr: true},
		{name: "nested field", path: "n1/meta/seen", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, field, err := SplitUpdatePath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPath))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantField, field)
		})
	}
}

func TestGroupUpdatesRejectsWholeUpdateOnBadPath(t *testing.T) {
	_, err := GroupUpdates(map[string]any{"n1/unread": false, "broken": false})
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestGroupUpdates(t *testing.T) {
	grouped, err := GroupUpdates(map[string]any{
		"n1/unread": false,
		"n1/title":  "hi",
		"n2/unread": false,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]any{
		"n1": {"unread": false, "title": "hi"},
		"n2": {"unread": false},
	}, grouped)
}

func TestPatchDocumentKeepsOtherFields(t *testing.T) {
	raw := json.RawMessage(`{"type":"chat","title":"New chat","unread":true,"createdAt":2}`)

	patched, err := PatchDocument(raw, map[string]any{"unread": false})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(patched, &doc))
	assert.Equal(t, false, doc["unread"])
	assert.Equal(t, "chat", doc["type"])
	assert.Equal(t, "New chat", doc["title"])
	assert.Equal(t, float64(2), doc["createdAt"])
}

func TestPatchDocumentRejectsNonObject(t *testing.T) {
	_, err := PatchDocument(json.RawMessage(`[1,2]`), map[string]any{"unread": false})
	require.Error(t, err)
}

func TestNewDocumentStampsCreatedAt(t *testing.T) {
	key, raw, err := NewDocument(map[string]any{"type": "chat", "unread": true})
	require.NoError(t, err)
	assert.NotEmpty(t, key)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, CREATED_AT_FIELD)

	_, raw, err = NewDocument(map[string]any{"createdAt": 42})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, float64(42), doc[CREATED_AT_FIELD])
}
