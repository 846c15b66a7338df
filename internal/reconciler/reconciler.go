// Package reconciler turns "mark as read" intents into multi-path patches
// against the realtime store.
package reconciler

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
	"go.uber.org/zap"
)

const UNREAD_FIELD = "unread"

// Patch maps "<id>/unread" to false for every record it marks read.
type Patch map[string]any

func unreadPath(id string) string {
	return id + "/" + UNREAD_FIELD
}

// IDs returns the record ids the patch touches, sorted.
func (p Patch) IDs() []string {
	ids := make([]string, 0, len(p))
	for path := range p {
		ids = append(ids, strings.TrimSuffix(path, "/"+UNREAD_FIELD))
	}
	sort.Strings(ids)
	return ids
}

// MarkAllRead builds the patch for exactly the records that are unread in
// snapshot. Records that arrive later are not part of it.
func MarkAllRead(snapshot []model.Notification) Patch {
	patch := make(Patch)
	for _, n := range snapshot {
		if n.Unread {
			patch[unreadPath(n.ID)] = false
		}
	}
	return patch
}

func MarkOneRead(id string) Patch {
	if id == "" {
		return Patch{}
	}
	return Patch{unreadPath(id): false}
}

type Reconciler struct {
	logger *zap.Logger
	store  realtime.Store
	path   string

	// mu keeps two mark-read writes from this process from interleaving.
	mu sync.Mutex
}

func New(logger *zap.Logger, store realtime.Store, path string) *Reconciler {
	return &Reconciler{
		logger: logger,
		store:  store,
		path:   path,
	}
}

// Apply sends p to the store as a single multi-path update. An empty patch
// issues no write.
func (r *Reconciler) Apply(ctx context.Context, p Patch) error {
	if len(p) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.MultiPathUpdate(ctx, r.path, p); err != nil {
		r.logger.Sugar().Errorf("failed to mark notifications(%s) as read: %s", strings.Join(p.IDs(), ","), err.Error())
		return &WriteError{Paths: len(p), Err: err}
	}

	return nil
}

func (r *Reconciler) MarkAllRead(ctx context.Context, snapshot []model.Notification) (int, error) {
	patch := MarkAllRead(snapshot)
	return len(patch), r.Apply(ctx, patch)
}

func (r *Reconciler) MarkOneRead(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}
	return r.Apply(ctx, MarkOneRead(id))
}
