package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/nyayasetu/platform/internal/shared/metrics"
	"github.com/nyayasetu/platform/internal/shared/types"
)

// ActionAccessDenied is the trail entry written when an authenticated
// actor is refused a workflow action.
const ActionAccessDenied = "ACCESS_DENIED"

// RequestMeta carries the request attributes recorded with each entry.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Recorder writes boundary audit entries. Appending happens after the
// entity write committed, so a failed append is logged and surfaced to
// the caller but can no longer undo the transition.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record appends one entry for an actor's action on an entity.
func (r *Recorder) Record(ctx context.Context, actorID types.ID, action, entityType string, entityID *types.ID, details map[string]any, meta RequestMeta) error {
	entry := NewEntry(actorID, action, entityType, entityID, details).
		WithRequest(meta.IPAddress, meta.UserAgent)

	if err := r.store.Append(ctx, entry); err != nil {
		zap.S().Errorw("failed to append audit entry",
			"action", action, "entity_type", entityType, "error", err)
		return err
	}
	metrics.RecordAuditEntry()
	return nil
}

// Store exposes the underlying store for readers.
func (r *Recorder) Store() Store {
	return r.store
}
