package workflow

import (
	"context"

	"github.com/nyayasetu/platform/internal/shared/types"
)

// Repository defines transactional persistence for workflow entities.
// Each multi-record method applies its writes as one atomic unit: either
// every record lands or none does. The conversion guard (a FIR may gain a
// case exactly once) lives inside the repository transaction, not in
// application-level locking.
type Repository interface {
	GetComplaint(ctx context.Context, id types.ID) (*Complaint, error)
	GetFIR(ctx context.Context, id types.ID) (*FIR, error)
	GetCase(ctx context.Context, id types.ID) (*Case, error)

	CreateComplaint(ctx context.Context, c *Complaint) error
	CreateFIR(ctx context.Context, f *FIR) error

	// ApproveComplaint updates the complaint's approval fields and creates
	// the derived FIR atomically.
	ApproveComplaint(ctx context.Context, c *Complaint, f *FIR) error

	// ConvertFIRToCase creates the case and flips the FIR to
	// CONVERTED_TO_CASE with the back-reference in one transaction.
	// Returns a Conflict error when another conversion won the race.
	ConvertFIRToCase(ctx context.Context, f *FIR, k *Case) error

	// ScheduleHearing creates the hearing and moves the case to HEARING
	// with the next hearing date atomically.
	ScheduleHearing(ctx context.Context, h *Hearing, k *Case) error

	// RecordJudgment creates the judgment and closes the case atomically.
	RecordJudgment(ctx context.Context, j *Judgment, k *Case) error
}
