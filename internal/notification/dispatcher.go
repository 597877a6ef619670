package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nyayasetu/platform/internal/shared/metrics"
	"github.com/nyayasetu/platform/internal/shared/types"
)

// DeliveryFailure records one recipient whose notification could not be
// persisted.
type DeliveryFailure struct {
	UserID types.ID `json:"user_id"`
	Reason string   `json:"reason"`
}

// Result is the outcome of one dispatch batch.
type Result struct {
	Created  []Notification    `json:"created"`
	Failures []DeliveryFailure `json:"failures,omitempty"`
}

// Dispatcher materializes notification specs. Each spec is persisted
// durably; a persist failure is recorded and the batch continues. After
// persisting, a live push is attempted and its failure only logged.
type Dispatcher struct {
	store  Store
	pusher Pusher
	now    func() time.Time
}

func NewDispatcher(store Store, pusher Pusher) *Dispatcher {
	return &Dispatcher{store: store, pusher: pusher, now: time.Now}
}

// Dispatch delivers every spec independently. It never returns an
// error: partial failure is data, reported in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, specs []Spec) Result {
	var res Result
	for _, spec := range specs {
		n := &Notification{
			ID:          types.NewID(),
			Title:       spec.Title,
			Message:     spec.Message,
			Type:        spec.Type,
			Priority:    spec.Priority,
			UserID:      spec.UserID,
			ComplaintID: spec.ComplaintID,
			FIRID:       spec.FIRID,
			CaseID:      spec.CaseID,
			HearingID:   spec.HearingID,
			JudgmentID:  spec.JudgmentID,
			CreatedAt:   d.now(),
		}

		if err := d.store.Insert(ctx, n); err != nil {
			metrics.RecordNotificationPersistFailed()
			zap.S().Errorw("failed to persist notification",
				"user_id", spec.UserID, "title", spec.Title, "error", err)
			res.Failures = append(res.Failures, DeliveryFailure{
				UserID: spec.UserID,
				Reason: err.Error(),
			})
			continue
		}
		metrics.RecordNotificationPersisted()
		res.Created = append(res.Created, *n)

		if d.pusher != nil {
			if err := d.pusher.Push(n.UserID, n); err != nil {
				metrics.RecordNotificationPush(false)
				zap.S().Warnw("live notification push failed",
					"user_id", n.UserID, "notification_id", n.ID, "error", err)
			} else {
				metrics.RecordNotificationPush(true)
			}
		}
	}
	return res
}
