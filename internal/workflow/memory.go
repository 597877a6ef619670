package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/nyayasetu/platform/internal/shared/errors"
	"github.com/nyayasetu/platform/internal/shared/types"
)

// MemoryRepository is an in-memory Repository. It backs the server when
// no database is configured and the engine tests.
type MemoryRepository struct {
	mu         sync.RWMutex
	complaints map[types.ID]Complaint
	firs       map[types.ID]FIR
	cases      map[types.ID]Case
	hearings   map[types.ID]Hearing
	judgments  map[types.ID]Judgment

	// failNext, when set, makes the next write fail after all reads
	// succeeded. Used to exercise atomicity.
	failNext error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		complaints: make(map[types.ID]Complaint),
		firs:       make(map[types.ID]FIR),
		cases:      make(map[types.ID]Case),
		hearings:   make(map[types.ID]Hearing),
		judgments:  make(map[types.ID]Judgment),
	}
}

// FailNext makes the next mutating call return err without applying
// any of its writes.
func (r *MemoryRepository) FailNext(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = err
}

func (r *MemoryRepository) takeFailure() error {
	err := r.failNext
	r.failNext = nil
	return err
}

func (r *MemoryRepository) GetComplaint(ctx context.Context, id types.ID) (*Complaint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.complaints[id]
	if !ok {
		return nil, errors.NotFound("complaint", id.String())
	}
	return &c, nil
}

func (r *MemoryRepository) GetFIR(ctx context.Context, id types.ID) (*FIR, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.firs[id]
	if !ok {
		return nil, errors.NotFound("FIR", id.String())
	}
	return &f, nil
}

func (r *MemoryRepository) GetCase(ctx context.Context, id types.ID) (*Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.cases[id]
	if !ok {
		return nil, errors.NotFound("case", id.String())
	}
	return &k, nil
}

// GetHearing and GetJudgment exist for inspection in tests and the
// memory-backed server.
func (r *MemoryRepository) GetHearing(ctx context.Context, id types.ID) (*Hearing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hearings[id]
	if !ok {
		return nil, errors.NotFound("hearing", id.String())
	}
	return &h, nil
}

func (r *MemoryRepository) GetJudgment(ctx context.Context, id types.ID) (*Judgment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.judgments[id]
	if !ok {
		return nil, errors.NotFound("judgment", id.String())
	}
	return &j, nil
}

func (r *MemoryRepository) CreateComplaint(ctx context.Context, c *Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	r.complaints[c.ID] = *c
	return nil
}

func (r *MemoryRepository) CreateFIR(ctx context.Context, f *FIR) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	r.firs[f.ID] = *f
	return nil
}

func (r *MemoryRepository) ApproveComplaint(ctx context.Context, c *Complaint, f *FIR) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	r.complaints[c.ID] = *c
	r.firs[f.ID] = *f
	return nil
}

func (r *MemoryRepository) ConvertFIRToCase(ctx context.Context, f *FIR, k *Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	current, ok := r.firs[f.ID]
	if !ok {
		return errors.NotFound("FIR", f.ID.String())
	}
	if current.Status == FIRStatusConvertedToCase {
		return errors.Conflict(fmt.Sprintf("FIR %s is already converted", current.FIRNumber))
	}
	r.firs[f.ID] = *f
	r.cases[k.ID] = *k
	return nil
}

func (r *MemoryRepository) ScheduleHearing(ctx context.Context, h *Hearing, k *Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	r.hearings[h.ID] = *h
	r.cases[k.ID] = *k
	return nil
}

func (r *MemoryRepository) RecordJudgment(ctx context.Context, j *Judgment, k *Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	if current, ok := r.cases[k.ID]; ok && current.Status == CaseStatusClosed {
		return errors.Conflict(fmt.Sprintf("case %s already has a judgment", current.CaseNumber))
	}
	r.judgments[j.ID] = *j
	r.cases[k.ID] = *k
	return nil
}
