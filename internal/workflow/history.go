package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nyayasetu/platform/internal/audit"
	"github.com/nyayasetu/platform/internal/shared/errors"
	"github.com/nyayasetu/platform/internal/shared/types"
)

// Entity type names used in audit trails and history lookups.
const (
	EntityComplaint = "complaint"
	EntityFIR       = "fir"
	EntityCase      = "case"
)

// ActorSummary is the display form of an actor on a history entry.
type ActorSummary struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
	Role string   `json:"role"`
}

// Directory resolves actor IDs to display summaries. Batched so one
// history read costs one lookup.
type Directory interface {
	Summaries(ctx context.Context, ids []types.ID) (map[types.ID]ActorSummary, error)
}

// StaticDirectory is a Directory backed by a fixed map. Unknown actors
// resolve to nothing, which history rendering tolerates.
type StaticDirectory map[types.ID]ActorSummary

func (d StaticDirectory) Summaries(ctx context.Context, ids []types.ID) (map[types.ID]ActorSummary, error) {
	out := make(map[types.ID]ActorSummary, len(ids))
	for _, id := range ids {
		if s, ok := d[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

// HistoryEntry is one audit entry joined with its actor's summary.
type HistoryEntry struct {
	audit.Entry
	Actor *ActorSummary `json:"actor,omitempty"`
}

// HistoryReader assembles the lineage-wide activity trail of an entity.
// A case's history unions the trails of the case, its FIR, and that
// FIR's complaint; a FIR's history includes its complaint; a complaint's
// history is its own.
type HistoryReader struct {
	repo   Repository
	audits audit.Store
	users  Directory
}

func NewHistoryReader(repo Repository, audits audit.Store, users Directory) *HistoryReader {
	return &HistoryReader{repo: repo, audits: audits, users: users}
}

// History returns the entity's lineage trail, newest first. The target
// entity must exist; upstream lineage gaps are skipped silently.
func (r *HistoryReader) History(ctx context.Context, entityType string, id types.ID) ([]HistoryEntry, error) {
	refs, err := r.lineageRefs(ctx, entityType, id)
	if err != nil {
		return nil, err
	}

	entries, err := r.audits.ListByEntities(ctx, refs)
	if err != nil {
		return nil, err
	}

	summaries := r.resolveActors(ctx, entries)
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		he := HistoryEntry{Entry: e}
		if s, ok := summaries[e.ActorID]; ok {
			cp := s
			he.Actor = &cp
		}
		out = append(out, he)
	}
	return out, nil
}

func (r *HistoryReader) lineageRefs(ctx context.Context, entityType string, id types.ID) ([]audit.EntityRef, error) {
	switch entityType {
	case EntityComplaint:
		if _, err := r.repo.GetComplaint(ctx, id); err != nil {
			return nil, err
		}
		return []audit.EntityRef{{EntityType: EntityComplaint, EntityID: id}}, nil

	case EntityFIR:
		f, err := r.repo.GetFIR(ctx, id)
		if err != nil {
			return nil, err
		}
		refs := []audit.EntityRef{{EntityType: EntityFIR, EntityID: f.ID}}
		if f.ComplaintID != nil {
			refs = append(refs, audit.EntityRef{EntityType: EntityComplaint, EntityID: *f.ComplaintID})
		}
		return refs, nil

	case EntityCase:
		k, err := r.repo.GetCase(ctx, id)
		if err != nil {
			return nil, err
		}
		refs := []audit.EntityRef{
			{EntityType: EntityCase, EntityID: k.ID},
			{EntityType: EntityFIR, EntityID: k.FIRID},
		}
		complaintID := k.ComplaintID
		if complaintID == nil {
			if f, err := r.repo.GetFIR(ctx, k.FIRID); err == nil {
				complaintID = f.ComplaintID
			}
		}
		if complaintID != nil {
			refs = append(refs, audit.EntityRef{EntityType: EntityComplaint, EntityID: *complaintID})
		}
		return refs, nil

	default:
		return nil, errors.BadRequest(fmt.Sprintf("unknown entity type %q", entityType))
	}
}

// resolveActors looks up summaries for every distinct actor on the
// trail. Lookup failure degrades to unnamed entries.
func (r *HistoryReader) resolveActors(ctx context.Context, entries []audit.Entry) map[types.ID]ActorSummary {
	if r.users == nil || len(entries) == 0 {
		return nil
	}
	seen := make(map[types.ID]bool, len(entries))
	ids := make([]types.ID, 0, len(entries))
	for _, e := range entries {
		if !seen[e.ActorID] {
			seen[e.ActorID] = true
			ids = append(ids, e.ActorID)
		}
	}
	summaries, err := r.users.Summaries(ctx, ids)
	if err != nil {
		zap.S().Warnw("actor directory lookup failed, returning history without actor names", "error", err)
		return nil
	}
	return summaries
}
