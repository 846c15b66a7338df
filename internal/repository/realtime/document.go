package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const CREATED_AT_FIELD = "createdAt"

// SplitUpdatePath splits "<key>/<field>" into its parts.
func SplitUpdatePath(p string) (key, field string, err error) {
	key, field, ok := strings.Cut(p, "/")
	if !ok || key == "" || field == "" || strings.Contains(field, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return key, field, nil
}

// GroupUpdates turns a flat multi-path update into per-record field sets.
// The whole update is rejected if any path is malformed.
func GroupUpdates(updates map[string]any) (map[string]map[string]any, error) {
	grouped := make(map[string]map[string]any)
	for p, value := range updates {
		key, field, err := SplitUpdatePath(p)
		if err != nil {
			return nil, err
		}
		if grouped[key] == nil {
			grouped[key] = make(map[string]any)
		}
		grouped[key][field] = value
	}
	return grouped, nil
}

// PatchDocument sets fields on a stored JSON object, leaving every other
// field untouched.
func PatchDocument(raw json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decoding stored document: %w", err)
		}
	}
	for field, value := range fields {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding field %s: %w", field, err)
		}
		doc[field] = encoded
	}
	return json.Marshal(doc)
}

// NewDocument assigns a key to a new record and stamps createdAt in
// milliseconds when the producer did not provide one.
func NewDocument(fields map[string]any) (string, json.RawMessage, error) {
	doc := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	if _, ok := doc[CREATED_AT_FIELD]; !ok {
		doc[CREATED_AT_FIELD] = time.Now().UnixMilli()
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("encoding document: %w", err)
	}
	return uuid.NewString(), raw, nil
}
