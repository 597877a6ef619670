package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nyayasetu/platform/internal/notification"
	"github.com/nyayasetu/platform/internal/shared/errors"
	"github.com/nyayasetu/platform/internal/shared/types"
)

// Station is a police station record from the CCTNS registry.
type Station struct {
	Code     string
	Name     string
	District string
	State    string
	Active   bool
}

// StationDirectory resolves station codes against the legacy registry.
type StationDirectory interface {
	Lookup(ctx context.Context, code string) (*Station, error)
}

// TransitionResult is the outcome of one executed action. Only the
// entities the action touched are populated.
type TransitionResult struct {
	Complaint *Complaint `json:"complaint,omitempty"`
	FIR       *FIR       `json:"fir,omitempty"`
	Case      *Case      `json:"case,omitempty"`
	Hearing   *Hearing   `json:"hearing,omitempty"`
	Judgment  *Judgment  `json:"judgment,omitempty"`

	// Replayed is true when an already converted FIR was requested
	// again and the existing case was returned unchanged.
	Replayed bool `json:"replayed,omitempty"`

	// Notices are the notifications this transition owes its
	// recipients. The caller dispatches them after the write commits.
	Notices []notification.Spec `json:"-"`
}

// Engine executes workflow actions. Authorization runs before any
// storage access, multi-record writes go through the repository as a
// single atomic operation, and notification targets are derived from
// the entity graph as it stands at transition time.
type Engine struct {
	repo     Repository
	stations StationDirectory
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithStationDirectory enables station code validation on FIR filing.
func WithStationDirectory(d StationDirectory) Option {
	return func(e *Engine) { e.stations = d }
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs a single action against the workflow. Unknown actions
// and unauthorized roles fail closed with a Forbidden error.
func (e *Engine) Execute(ctx context.Context, cmd Command) (*TransitionResult, error) {
	if !Authorize(cmd.Action, cmd.Actor.Role) {
		return nil, errors.Forbidden(fmt.Sprintf("role %s is not permitted to perform %s", cmd.Actor.Role, cmd.Action))
	}

	switch cmd.Action {
	case ActionFileComplaint:
		return e.fileComplaint(ctx, cmd)
	case ActionFileFIR:
		return e.fileFIR(ctx, cmd)
	case ActionApproveComplaint:
		return e.approveComplaint(ctx, cmd)
	case ActionConvertFIRToCase:
		return e.convertFIRToCase(ctx, cmd)
	case ActionScheduleHearing:
		return e.scheduleHearing(ctx, cmd)
	case ActionRecordJudgment:
		return e.recordJudgment(ctx, cmd)
	default:
		return nil, errors.Forbidden(fmt.Sprintf("unknown action %s", cmd.Action))
	}
}

func (e *Engine) fileComplaint(ctx context.Context, cmd Command) (*TransitionResult, error) {
	var p FileComplaintPayload
	if err := decodePayload(cmd.Payload, &p); err != nil {
		return nil, err
	}
	details := map[string]string{}
	if strings.TrimSpace(p.Title) == "" {
		details["title"] = "title is required"
	}
	if strings.TrimSpace(p.Description) == "" {
		details["description"] = "description is required"
	}
	if strings.TrimSpace(p.Category) == "" {
		details["category"] = "category is required"
	}
	if len(details) > 0 {
		return nil, errors.Validation("complaint is missing required fields", details)
	}

	now := e.now()
	c := &Complaint{
		ID:              types.NewID(),
		ComplaintNumber: NewComplaintNumber(now),
		Title:           p.Title,
		Description:     p.Description,
		Category:        p.Category,
		Priority:        normalizePriority(p.Priority),
		Location:        p.Location,
		Jurisdiction:    p.Jurisdiction,
		CitizenID:       cmd.Actor.ID,
		Status:          ComplaintStatusSubmitted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.repo.CreateComplaint(ctx, c); err != nil {
		return nil, err
	}

	return &TransitionResult{
		Complaint: c,
		Notices: []notification.Spec{{
			UserID:      c.CitizenID,
			Title:       "Complaint Submitted",
			Message:     fmt.Sprintf("Your complaint %s has been submitted successfully and is pending review", c.ComplaintNumber),
			Type:        notification.TypeSuccess,
			Priority:    notification.PriorityMedium,
			ComplaintID: &c.ID,
		}},
	}, nil
}

func (e *Engine) fileFIR(ctx context.Context, cmd Command) (*TransitionResult, error) {
	var p FileFIRPayload
	if err := decodePayload(cmd.Payload, &p); err != nil {
		return nil, err
	}
	details := map[string]string{}
	if strings.TrimSpace(p.Title) == "" {
		details["title"] = "title is required"
	}
	if strings.TrimSpace(p.Description) == "" {
		details["description"] = "description is required"
	}
	if strings.TrimSpace(p.Location) == "" {
		details["location"] = "location is required"
	}
	if len(details) > 0 {
		return nil, errors.Validation("FIR is missing required fields", details)
	}

	if e.stations != nil && strings.TrimSpace(p.StationCode) != "" {
		st, err := e.stations.Lookup(ctx, p.StationCode)
		if err != nil {
			if errors.IsNotFound(err) {
				return nil, errors.Validation("FIR references an unknown police station", map[string]string{
					"stationCode": fmt.Sprintf("station %s is not registered", p.StationCode),
				})
			}
			zap.S().Warnw("station registry lookup failed, accepting FIR without validation",
				"station_code", p.StationCode, "error", err)
		} else if !st.Active {
			return nil, errors.Validation("FIR references a decommissioned police station", map[string]string{
				"stationCode": fmt.Sprintf("station %s is no longer active", p.StationCode),
			})
		}
	}

	now := e.now()
	f := &FIR{
		ID:           types.NewID(),
		FIRNumber:    NewFIRNumber(now),
		Title:        p.Title,
		Description:  p.Description,
		Category:     p.Category,
		Priority:     normalizePriority(p.Priority),
		Location:     p.Location,
		Jurisdiction: p.Jurisdiction,
		StationCode:  p.StationCode,
		FiledBy:      cmd.Actor.ID,
		Status:       FIRStatusSubmitted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.repo.CreateFIR(ctx, f); err != nil {
		return nil, err
	}

	return &TransitionResult{
		FIR: f,
		Notices: []notification.Spec{{
			UserID:   f.FiledBy,
			Title:    "FIR Created Successfully",
			Message:  fmt.Sprintf("FIR %s has been registered and is ready for investigation", f.FIRNumber),
			Type:     notification.TypeSuccess,
			Priority: notification.PriorityMedium,
			FIRID:    &f.ID,
		}},
	}, nil
}

func (e *Engine) approveComplaint(ctx context.Context, cmd Command) (*TransitionResult, error) {
	var p ApproveComplaintPayload
	if err := decodePayload(cmd.Payload, &p); err != nil {
		return nil, err
	}

	c, err := e.repo.GetComplaint(ctx, cmd.EntityID)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case ComplaintStatusApproved:
		return nil, errors.PreconditionFailed(fmt.Sprintf("complaint %s is already approved", c.ComplaintNumber))
	case ComplaintStatusRejected:
		return nil, errors.PreconditionFailed(fmt.Sprintf("complaint %s has been rejected and cannot be approved", c.ComplaintNumber))
	}

	now := e.now()
	approved := *c
	approved.Status = ComplaintStatusApproved
	approved.ApprovedBy = &cmd.Actor.ID
	approved.ApprovedAt = &now
	approved.UpdatedAt = now

	filedBy := cmd.Actor.ID
	if p.AssignedTo != nil && !p.AssignedTo.IsZero() {
		filedBy = *p.AssignedTo
	}
	f := &FIR{
		ID:           types.NewID(),
		FIRNumber:    NewFIRNumber(now),
		Title:        c.Title,
		Description:  c.Description,
		Category:     c.Category,
		Priority:     c.Priority,
		Location:     c.Location,
		Jurisdiction: c.Jurisdiction,
		ComplaintID:  &c.ID,
		FiledBy:      filedBy,
		Status:       FIRStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.repo.ApproveComplaint(ctx, &approved, f); err != nil {
		return nil, err
	}

	notices := []notification.Spec{{
		UserID:      approved.CitizenID,
		Title:       "Complaint Approved",
		Message:     fmt.Sprintf("Your complaint %s has been approved and an FIR has been initiated", approved.ComplaintNumber),
		Type:        notification.TypeSuccess,
		Priority:    notification.PriorityMedium,
		ComplaintID: &approved.ID,
		FIRID:       &f.ID,
	}}
	if f.FiledBy != cmd.Actor.ID {
		notices = append(notices, notification.Spec{
			UserID:   f.FiledBy,
			Title:    "New FIR Assigned",
			Message:  fmt.Sprintf("FIR %s derived from complaint %s has been assigned to you", f.FIRNumber, approved.ComplaintNumber),
			Type:     notification.TypeInfo,
			Priority: notification.PriorityMedium,
			FIRID:    &f.ID,
		})
	}

	return &TransitionResult{Complaint: &approved, FIR: f, Notices: notices}, nil
}

func (e *Engine) convertFIRToCase(ctx context.Context, cmd Command) (*TransitionResult, error) {
	var p ConvertFIRPayload
	if err := decodePayload(cmd.Payload, &p); err != nil {
		return nil, err
	}

	f, err := e.repo.GetFIR(ctx, cmd.EntityID)
	if err != nil {
		return nil, err
	}
	if f.Status == FIRStatusConvertedToCase {
		return e.replayConversion(ctx, f)
	}

	now := e.now()
	k := &Case{
		ID:          types.NewID(),
		CaseNumber:  NewCaseNumber(now),
		Title:       f.Title,
		Description: f.Description,
		Category:    f.Category,
		Priority:    f.Priority,
		Plaintiff:   "State",
		Defendant:   "Accused",
		FIRID:       f.ID,
		ComplaintID: f.ComplaintID,
		CourtID:     p.CourtID,
		Status:      CaseStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	converted := *f
	converted.Status = FIRStatusConvertedToCase
	converted.CaseID = &k.ID
	converted.UpdatedAt = now

	if err := e.repo.ConvertFIRToCase(ctx, &converted, k); err != nil {
		if errors.IsConflict(err) {
			// A Conflict means either a concurrent conversion won the
			// race or the case number collided. Only the former leaves
			// the FIR converted; a collision stays a retryable Conflict.
			fresh, rerr := e.repo.GetFIR(ctx, cmd.EntityID)
			if rerr != nil {
				return nil, rerr
			}
			if fresh.Status == FIRStatusConvertedToCase {
				return e.replayConversion(ctx, fresh)
			}
		}
		return nil, err
	}

	notices := e.lineageNotice(ctx, converted.ComplaintID, notification.Spec{
		Title:    "Case Filed in Court",
		Message:  fmt.Sprintf("Your complaint has progressed to court case %s", k.CaseNumber),
		Type:     notification.TypeInfo,
		Priority: notification.PriorityHigh,
		FIRID:    &converted.ID,
		CaseID:   &k.ID,
	})

	return &TransitionResult{FIR: &converted, Case: k, Notices: notices}, nil
}

// replayConversion returns the case an already converted FIR points
// at. Replays never re-notify.
func (e *Engine) replayConversion(ctx context.Context, f *FIR) (*TransitionResult, error) {
	if f.CaseID == nil {
		return nil, errors.Internal(fmt.Errorf("FIR %s is marked converted but has no case reference", f.FIRNumber))
	}
	k, err := e.repo.GetCase(ctx, *f.CaseID)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{FIR: f, Case: k, Replayed: true}, nil
}

func (e *Engine) scheduleHearing(ctx context.Context, cmd Command) (*TransitionResult, error) {
	var p ScheduleHearingPayload
	if err := decodePayload(cmd.Payload, &p); err != nil {
		return nil, err
	}
	details := map[string]string{}
	if strings.TrimSpace(p.Date) == "" {
		details["date"] = "date is required"
	}
	if strings.TrimSpace(p.Time) == "" {
		details["time"] = "time is required"
	}
	if p.JudgeID.IsZero() {
		details["judgeId"] = "judgeId is required"
	}
	if strings.TrimSpace(p.Courtroom) == "" {
		details["courtroom"] = "courtroom is required"
	}
	if len(details) > 0 {
		return nil, errors.Validation("hearing is missing required fields", details)
	}

	k, err := e.repo.GetCase(ctx, cmd.EntityID)
	if err != nil {
		return nil, err
	}
	if k.Status == CaseStatusClosed {
		return nil, errors.PreconditionFailed(fmt.Sprintf("case %s is closed and cannot schedule hearings", k.CaseNumber))
	}

	hearingType := HearingType(strings.ToUpper(strings.TrimSpace(string(p.Type))))
	if hearingType == "" {
		hearingType = HearingTypeRegular
	}

	now := e.now()
	h := &Hearing{
		ID:          types.NewID(),
		CaseID:      k.ID,
		Date:        p.Date,
		Time:        p.Time,
		Type:        hearingType,
		JudgeID:     p.JudgeID,
		Courtroom:   p.Courtroom,
		Status:      HearingStatusScheduled,
		ScheduledBy: cmd.Actor.ID,
		CreatedAt:   now,
	}
	updated := *k
	updated.Status = CaseStatusHearing
	updated.NextHearingDate = p.Date
	updated.UpdatedAt = now

	if err := e.repo.ScheduleHearing(ctx, h, &updated); err != nil {
		return nil, err
	}

	notices := e.caseNotice(ctx, &updated, notification.Spec{
		Title:    "Hearing Scheduled",
		Message:  fmt.Sprintf("A hearing for case %s has been scheduled on %s at %s", updated.CaseNumber, h.Date, h.Time),
		Type:     notification.TypeInfo,
		Priority: notification.PriorityHigh,
		CaseID:   &updated.ID,
	})

	return &TransitionResult{Case: &updated, Hearing: h, Notices: notices}, nil
}

func (e *Engine) recordJudgment(ctx context.Context, cmd Command) (*TransitionResult, error) {
	var p RecordJudgmentPayload
	if err := decodePayload(cmd.Payload, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Decision) == "" {
		return nil, errors.Validation("judgment is missing required fields", map[string]string{
			"decision": "decision is required",
		})
	}

	k, err := e.repo.GetCase(ctx, cmd.EntityID)
	if err != nil {
		return nil, err
	}
	if k.Status == CaseStatusClosed {
		return nil, errors.PreconditionFailed(fmt.Sprintf("case %s is already closed", k.CaseNumber))
	}

	now := e.now()
	j := &Judgment{
		ID:        types.NewID(),
		CaseID:    k.ID,
		Summary:   p.Summary,
		Decision:  p.Decision,
		Reasoning: p.Reasoning,
		JudgeID:   cmd.Actor.ID,
		Status:    JudgmentStatusPublished,
		CreatedAt: now,
	}
	closed := *k
	closed.Status = CaseStatusClosed
	closed.JudgmentID = &j.ID
	closed.ClosedAt = &now
	closed.UpdatedAt = now

	if err := e.repo.RecordJudgment(ctx, j, &closed); err != nil {
		return nil, err
	}

	notices := e.caseNotice(ctx, &closed, notification.Spec{
		Title:    "Judgment Delivered",
		Message:  fmt.Sprintf("Judgment has been delivered for case %s: %s", closed.CaseNumber, j.Decision),
		Type:     notification.TypeSuccess,
		Priority: notification.PriorityHigh,
		CaseID:   &closed.ID,
	})

	return &TransitionResult{Case: &closed, Judgment: j, Notices: notices}, nil
}

// caseNotice addresses a notice to the citizen upstream of a case by
// walking case to FIR to complaint.
func (e *Engine) caseNotice(ctx context.Context, k *Case, spec notification.Spec) []notification.Spec {
	complaintID := k.ComplaintID
	if complaintID == nil {
		f, err := e.repo.GetFIR(ctx, k.FIRID)
		if err != nil {
			if !errors.IsNotFound(err) {
				zap.S().Warnw("lineage walk failed, skipping notification",
					"case_id", k.ID, "error", err)
			}
			return nil
		}
		complaintID = f.ComplaintID
	}
	return e.lineageNotice(ctx, complaintID, spec)
}

// lineageNotice resolves a complaint reference to its citizen. A case
// that never passed through a complaint has no citizen to notify, so
// the result is empty rather than an error.
func (e *Engine) lineageNotice(ctx context.Context, complaintID *types.ID, spec notification.Spec) []notification.Spec {
	if complaintID == nil {
		return nil
	}
	c, err := e.repo.GetComplaint(ctx, *complaintID)
	if err != nil {
		if !errors.IsNotFound(err) {
			zap.S().Warnw("lineage walk failed, skipping notification",
				"complaint_id", complaintID, "error", err)
		}
		return nil
	}
	spec.UserID = c.CitizenID
	if spec.ComplaintID == nil {
		spec.ComplaintID = &c.ID
	}
	return []notification.Spec{spec}
}

func normalizePriority(p Priority) Priority {
	switch Priority(strings.ToUpper(strings.TrimSpace(string(p)))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	case PriorityUrgent:
		return PriorityUrgent
	default:
		return PriorityMedium
	}
}
