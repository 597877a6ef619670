// Package notification persists per-recipient notifications and pushes
// best-effort live events to connected sessions.
package notification

import (
	"context"
	"time"

	"github.com/nyayasetu/platform/internal/shared/types"
)

// Type classifies a notification for display
type Type string

const (
	TypeInfo    Type = "INFO"
	TypeSuccess Type = "SUCCESS"
	TypeWarning Type = "WARNING"
	TypeError   Type = "ERROR"
)

// Priority ranks a notification for display
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Spec describes one notification to be delivered to one recipient.
// Producers (the workflow engine) emit specs; the dispatcher materializes
// them into rows and live pushes.
type Spec struct {
	UserID   types.ID `json:"user_id"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Type     Type     `json:"type"`
	Priority Priority `json:"priority"`

	// Entity back-references, all optional
	ComplaintID *types.ID `json:"complaint_id,omitempty"`
	FIRID       *types.ID `json:"fir_id,omitempty"`
	CaseID      *types.ID `json:"case_id,omitempty"`
	HearingID   *types.ID `json:"hearing_id,omitempty"`
	JudgmentID  *types.ID `json:"judgment_id,omitempty"`
}

// Notification is a persisted per-recipient notification row. Append-only:
// the only mutation after creation is the read marker.
type Notification struct {
	ID       types.ID `json:"id"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Type     Type     `json:"type"`
	Priority Priority `json:"priority"`
	UserID   types.ID `json:"user_id"`

	ComplaintID *types.ID `json:"complaint_id,omitempty"`
	FIRID       *types.ID `json:"fir_id,omitempty"`
	CaseID      *types.ID `json:"case_id,omitempty"`
	HearingID   *types.ID `json:"hearing_id,omitempty"`
	JudgmentID  *types.ID `json:"judgment_id,omitempty"`

	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter defines filters for listing a user's notifications
type ListFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Store defines durable notification persistence
type Store interface {
	Insert(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID types.ID, filter ListFilter) ([]Notification, int, error)
	MarkRead(ctx context.Context, id, userID types.ID) error
}

// Pusher delivers a live event to any connected session of a recipient.
// Delivery is a convenience: failures are logged and never retried.
type Pusher interface {
	Push(userID types.ID, n *Notification) error
}
