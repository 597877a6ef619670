package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nyayasetu/platform/internal/auth"
	"github.com/nyayasetu/platform/internal/shared/errors"
	"github.com/nyayasetu/platform/internal/shared/types"
)

var (
	testCitizen = auth.Actor{ID: types.NewID(), Role: auth.RoleCitizen}
	testPolice  = auth.Actor{ID: types.NewID(), Role: auth.RolePolice}
	testJudge   = auth.Actor{ID: types.NewID(), Role: auth.RoleJudge}
)

func testEngine(opts ...Option) (*Engine, *MemoryRepository) {
	repo := NewMemoryRepository()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	opts = append(opts, WithClock(func() time.Time { return now }))
	return NewEngine(repo, opts...), repo
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustExecute(t *testing.T, e *Engine, cmd Command) *TransitionResult {
	t.Helper()
	res, err := e.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Execute(%s) failed: %v", cmd.Action, err)
	}
	return res
}

func fileComplaint(t *testing.T, e *Engine) *Complaint {
	t.Helper()
	res := mustExecute(t, e, Command{
		Action: ActionFileComplaint,
		Actor:  testCitizen,
		Payload: payload(t, map[string]string{
			"title":       "Stolen vehicle",
			"description": "Car stolen from parking lot",
			"category":    "THEFT",
			"location":    "Sector 14, Gurugram",
		}),
	})
	return res.Complaint
}

func approveComplaint(t *testing.T, e *Engine, complaintID types.ID) *TransitionResult {
	t.Helper()
	return mustExecute(t, e, Command{
		Action:   ActionApproveComplaint,
		EntityID: complaintID,
		Actor:    testPolice,
	})
}

func convertFIR(t *testing.T, e *Engine, firID types.ID) *TransitionResult {
	t.Helper()
	return mustExecute(t, e, Command{
		Action:   ActionConvertFIRToCase,
		EntityID: firID,
		Actor:    testPolice,
	})
}

func TestExecuteDeniesUnauthorizedRole(t *testing.T) {
	e, _ := testEngine()

	_, err := e.Execute(context.Background(), Command{
		Action:   ActionApproveComplaint,
		EntityID: types.NewID(),
		Actor:    testCitizen,
	})
	if !errors.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestExecuteAuthorizesBeforeStorage(t *testing.T) {
	e, _ := testEngine()

	// The target does not exist. A denied actor must see forbidden,
	// not not-found, or the check would leak entity existence.
	_, err := e.Execute(context.Background(), Command{
		Action:   ActionRecordJudgment,
		EntityID: types.NewID(),
		Actor:    testPolice,
	})
	if !errors.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestFileComplaint(t *testing.T) {
	e, _ := testEngine()
	c := fileComplaint(t, e)

	if c.Status != ComplaintStatusSubmitted {
		t.Errorf("status = %s, want SUBMITTED", c.Status)
	}
	if !strings.HasPrefix(c.ComplaintNumber, "COMP-") {
		t.Errorf("complaint number %q missing COMP- prefix", c.ComplaintNumber)
	}
	if c.CitizenID != testCitizen.ID {
		t.Error("complaint not attributed to the filing citizen")
	}
}

func TestFileComplaintValidation(t *testing.T) {
	e, _ := testEngine()

	_, err := e.Execute(context.Background(), Command{
		Action:  ActionFileComplaint,
		Actor:   testCitizen,
		Payload: payload(t, map[string]string{"title": "no description"}),
	})
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := appErr.Details["description"]; !ok {
		t.Error("expected description field in validation details")
	}
}

func TestFileComplaintNotifiesFiler(t *testing.T) {
	e, _ := testEngine()
	res := mustExecute(t, e, Command{
		Action: ActionFileComplaint,
		Actor:  testCitizen,
		Payload: payload(t, map[string]string{
			"title":       "Noise complaint",
			"description": "Construction at night",
			"category":    "NUISANCE",
		}),
	})

	if len(res.Notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(res.Notices))
	}
	if res.Notices[0].UserID != testCitizen.ID {
		t.Error("filing notice not addressed to the citizen")
	}
}

func TestApproveComplaint(t *testing.T) {
	e, repo := testEngine()
	c := fileComplaint(t, e)

	res := approveComplaint(t, e, c.ID)

	if res.Complaint.Status != ComplaintStatusApproved {
		t.Errorf("complaint status = %s, want APPROVED", res.Complaint.Status)
	}
	if res.Complaint.ApprovedBy == nil || *res.Complaint.ApprovedBy != testPolice.ID {
		t.Error("approval not attributed to the approving officer")
	}

	f := res.FIR
	if f == nil {
		t.Fatal("approval produced no FIR")
	}
	if f.Status != FIRStatusDraft {
		t.Errorf("FIR status = %s, want DRAFT", f.Status)
	}
	if f.ComplaintID == nil || *f.ComplaintID != c.ID {
		t.Error("FIR does not reference its source complaint")
	}
	if f.Title != c.Title || f.Category != c.Category || f.Priority != c.Priority {
		t.Error("FIR did not copy the complaint's fields")
	}
	if f.FiledBy != testPolice.ID {
		t.Error("FIR not filed by the approver by default")
	}

	// Both records must have landed.
	stored, err := repo.GetFIR(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("FIR not persisted: %v", err)
	}
	if stored.Status != FIRStatusDraft {
		t.Errorf("persisted FIR status = %s", stored.Status)
	}
}

func TestApproveComplaintFanOut(t *testing.T) {
	t.Run("approver files the FIR", func(t *testing.T) {
		e, _ := testEngine()
		c := fileComplaint(t, e)

		res := approveComplaint(t, e, c.ID)
		if len(res.Notices) != 1 {
			t.Fatalf("notices = %d, want 1 (citizen only)", len(res.Notices))
		}
		if res.Notices[0].UserID != testCitizen.ID {
			t.Error("notice not addressed to the citizen")
		}
	})

	t.Run("assigned officer differs from approver", func(t *testing.T) {
		e, _ := testEngine()
		c := fileComplaint(t, e)
		officer := types.NewID()

		res := mustExecute(t, e, Command{
			Action:   ActionApproveComplaint,
			EntityID: c.ID,
			Actor:    testPolice,
			Payload:  payload(t, map[string]any{"assignedTo": officer}),
		})
		if len(res.Notices) != 2 {
			t.Fatalf("notices = %d, want 2 (citizen and officer)", len(res.Notices))
		}
		if res.Notices[0].UserID != testCitizen.ID {
			t.Error("first notice not addressed to the citizen")
		}
		if res.Notices[1].UserID != officer {
			t.Error("second notice not addressed to the assigned officer")
		}
		if res.FIR.FiledBy != officer {
			t.Error("FIR not assigned to the designated officer")
		}
	})
}

func TestApproveComplaintPreconditions(t *testing.T) {
	e, _ := testEngine()
	c := fileComplaint(t, e)
	approveComplaint(t, e, c.ID)

	_, err := e.Execute(context.Background(), Command{
		Action:   ActionApproveComplaint,
		EntityID: c.ID,
		Actor:    testPolice,
	})
	if !errors.IsPrecondition(err) {
		t.Fatalf("re-approval: expected precondition failure, got %v", err)
	}

	_, err = e.Execute(context.Background(), Command{
		Action:   ActionApproveComplaint,
		EntityID: types.NewID(),
		Actor:    testPolice,
	})
	if !errors.IsNotFound(err) {
		t.Fatalf("missing complaint: expected not found, got %v", err)
	}
}

func TestApproveComplaintAtomicity(t *testing.T) {
	e, repo := testEngine()
	c := fileComplaint(t, e)

	repo.FailNext(errors.Wrap(fmt.Errorf("disk full"), "write failed"))
	_, err := e.Execute(context.Background(), Command{
		Action:   ActionApproveComplaint,
		EntityID: c.ID,
		Actor:    testPolice,
	})
	if err == nil {
		t.Fatal("expected write failure")
	}

	// Nothing may have landed: the complaint stays SUBMITTED.
	stored, err := repo.GetComplaint(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != ComplaintStatusSubmitted {
		t.Errorf("complaint status = %s after failed approval, want SUBMITTED", stored.Status)
	}
}

func TestConvertFIRToCase(t *testing.T) {
	e, repo := testEngine()
	c := fileComplaint(t, e)
	f := approveComplaint(t, e, c.ID).FIR

	res := convertFIR(t, e, f.ID)

	k := res.Case
	if k == nil {
		t.Fatal("conversion produced no case")
	}
	if k.Status != CaseStatusPending {
		t.Errorf("case status = %s, want PENDING", k.Status)
	}
	if k.Plaintiff != "State" || k.Defendant != "Accused" {
		t.Errorf("parties = %s vs %s, want State vs Accused", k.Plaintiff, k.Defendant)
	}
	if !strings.HasPrefix(k.CaseNumber, "CASE/") {
		t.Errorf("case number %q missing CASE/ prefix", k.CaseNumber)
	}

	// Referential symmetry between the FIR and its case.
	if res.FIR.Status != FIRStatusConvertedToCase {
		t.Errorf("FIR status = %s, want CONVERTED_TO_CASE", res.FIR.Status)
	}
	if res.FIR.CaseID == nil || *res.FIR.CaseID != k.ID {
		t.Error("FIR does not point at the created case")
	}
	if k.FIRID != f.ID {
		t.Error("case does not point back at the FIR")
	}

	stored, err := repo.GetFIR(context.Background(), f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != FIRStatusConvertedToCase {
		t.Error("FIR conversion not persisted")
	}

	// The upstream citizen is the notification target.
	if len(res.Notices) != 1 || res.Notices[0].UserID != testCitizen.ID {
		t.Errorf("expected one notice to the citizen, got %+v", res.Notices)
	}
}

func TestConvertFIRToCaseReplay(t *testing.T) {
	e, _ := testEngine()
	c := fileComplaint(t, e)
	f := approveComplaint(t, e, c.ID).FIR

	first := convertFIR(t, e, f.ID)
	second := convertFIR(t, e, f.ID)

	if !second.Replayed {
		t.Fatal("second conversion not marked as replay")
	}
	if second.Case.ID != first.Case.ID {
		t.Error("replay returned a different case")
	}
	if len(second.Notices) != 0 {
		t.Error("replay must not re-notify")
	}
}

// racingRepo serves one stale FIR read, simulating a conversion that
// lands between the engine's read and its write.
type racingRepo struct {
	*MemoryRepository
	stale *FIR
	reads int
}

func (r *racingRepo) GetFIR(ctx context.Context, id types.ID) (*FIR, error) {
	r.reads++
	if r.reads == 1 {
		return r.stale, nil
	}
	return r.MemoryRepository.GetFIR(ctx, id)
}

func TestConvertFIRToCaseLosesRace(t *testing.T) {
	e, repo := testEngine()
	c := fileComplaint(t, e)
	f := approveComplaint(t, e, c.ID).FIR
	winner := convertFIR(t, e, f.ID)

	stale := *f
	racing := NewEngine(&racingRepo{MemoryRepository: repo, stale: &stale})

	res, err := racing.Execute(context.Background(), Command{
		Action:   ActionConvertFIRToCase,
		EntityID: f.ID,
		Actor:    testPolice,
	})
	if err != nil {
		t.Fatalf("losing a conversion race must replay, got %v", err)
	}
	if !res.Replayed {
		t.Error("raced conversion not marked as replay")
	}
	if res.Case.ID != winner.Case.ID {
		t.Error("raced conversion did not return the winner's case")
	}
}

// collidingRepo rejects the conversion write the way a unique
// constraint violation on the case number would, leaving the stored
// FIR untouched.
type collidingRepo struct {
	*MemoryRepository
}

func (r *collidingRepo) ConvertFIRToCase(ctx context.Context, f *FIR, k *Case) error {
	return errors.Conflict(fmt.Sprintf("case number %s already exists, retry the filing", k.CaseNumber))
}

func TestConvertFIRToCaseNumberCollision(t *testing.T) {
	e, repo := testEngine()
	c := fileComplaint(t, e)
	f := approveComplaint(t, e, c.ID).FIR

	colliding := NewEngine(&collidingRepo{MemoryRepository: repo})
	_, err := colliding.Execute(context.Background(), Command{
		Action:   ActionConvertFIRToCase,
		EntityID: f.ID,
		Actor:    testPolice,
	})
	if !errors.IsConflict(err) {
		t.Fatalf("number collision must surface as a retryable conflict, got %v", err)
	}

	stored, getErr := repo.GetFIR(context.Background(), f.ID)
	if getErr != nil {
		t.Fatal(getErr)
	}
	if stored.Status == FIRStatusConvertedToCase {
		t.Error("rolled back conversion must leave the FIR unconverted")
	}
}

func TestScheduleHearing(t *testing.T) {
	e, _ := testEngine()
	c := fileComplaint(t, e)
	f := approveComplaint(t, e, c.ID).FIR
	k := convertFIR(t, e, f.ID).Case

	judgeID := types.NewID()
	res := mustExecute(t, e, Command{
		Action:   ActionScheduleHearing,
		EntityID: k.ID,
		Actor:    testJudge,
		Payload: payload(t, map[string]any{
			"date":      "2026-04-01",
			"time":      "10:30",
			"judgeId":   judgeID,
			"courtroom": "Courtroom 3",
		}),
	})

	h := res.Hearing
	if h.Type != HearingTypeRegular {
		t.Errorf("hearing type = %s, want REGULAR default", h.Type)
	}
	if h.Status != HearingStatusScheduled {
		t.Errorf("hearing status = %s, want SCHEDULED", h.Status)
	}
	if h.ScheduledBy != testJudge.ID {
		t.Error("hearing not attributed to scheduling actor")
	}
	if res.Case.Status != CaseStatusHearing {
		t.Errorf("case status = %s, want HEARING", res.Case.Status)
	}
	if res.Case.NextHearingDate != "2026-04-01" {
		t.Errorf("next hearing date = %s", res.Case.NextHearingDate)
	}
	if len(res.Notices) != 1 || res.Notices[0].UserID != testCitizen.ID {
		t.Error("hearing notice not addressed to the upstream citizen")
	}
}

func TestScheduleHearingValidation(t *testing.T) {
	e, _ := testEngine()

	_, err := e.Execute(context.Background(), Command{
		Action:   ActionScheduleHearing,
		EntityID: types.NewID(),
		Actor:    testJudge,
		Payload:  payload(t, map[string]string{"date": "2026-04-01"}),
	})
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"time", "judgeId", "courtroom"} {
		if _, ok := appErr.Details[field]; !ok {
			t.Errorf("expected %s in validation details", field)
		}
	}
}

func TestRecordJudgmentClosesCase(t *testing.T) {
	e, _ := testEngine()
	c := fileComplaint(t, e)
	f := approveComplaint(t, e, c.ID).FIR
	k := convertFIR(t, e, f.ID).Case

	res := mustExecute(t, e, Command{
		Action:   ActionRecordJudgment,
		EntityID: k.ID,
		Actor:    testJudge,
		Payload: payload(t, map[string]string{
			"summary":   "Convicted on all counts",
			"decision":  "GUILTY",
			"reasoning": "Overwhelming evidence",
		}),
	})

	if res.Judgment.Status != JudgmentStatusPublished {
		t.Errorf("judgment status = %s, want PUBLISHED", res.Judgment.Status)
	}
	if res.Judgment.JudgeID != testJudge.ID {
		t.Error("judgment not attributed to the judge")
	}
	if res.Case.Status != CaseStatusClosed {
		t.Errorf("case status = %s, want CLOSED", res.Case.Status)
	}
	if res.Case.ClosedAt == nil {
		t.Error("closed case has no closure time")
	}
	if res.Case.JudgmentID == nil || *res.Case.JudgmentID != res.Judgment.ID {
		t.Error("case does not reference its judgment")
	}
	if len(res.Notices) != 1 || res.Notices[0].UserID != testCitizen.ID {
		t.Error("judgment notice not addressed to the upstream citizen")
	}
}

func TestRecordJudgmentStoreGuardsClosedCase(t *testing.T) {
	e, repo := testEngine()
	c := fileComplaint(t, e)
	f := approveComplaint(t, e, c.ID).FIR
	k := convertFIR(t, e, f.ID).Case

	first := mustExecute(t, e, Command{
		Action:   ActionRecordJudgment,
		EntityID: k.ID,
		Actor:    testJudge,
		Payload:  payload(t, map[string]string{"decision": "GUILTY"}),
	})

	// A judgment that raced past the engine's precondition read must
	// still be rejected by the store.
	second := &Judgment{
		ID:       types.NewID(),
		CaseID:   k.ID,
		Decision: "ACQUITTED",
		JudgeID:  testJudge.ID,
		Status:   JudgmentStatusPublished,
	}
	reclosed := *first.Case
	reclosed.JudgmentID = &second.ID

	err := repo.RecordJudgment(context.Background(), second, &reclosed)
	if !errors.IsConflict(err) {
		t.Fatalf("second judgment on a closed case must conflict, got %v", err)
	}

	stored, getErr := repo.GetCase(context.Background(), k.ID)
	if getErr != nil {
		t.Fatal(getErr)
	}
	if stored.JudgmentID == nil || *stored.JudgmentID != first.Judgment.ID {
		t.Error("closed case no longer references the first judgment")
	}
}

func TestClosedCaseRejectsFurtherTransitions(t *testing.T) {
	e, _ := testEngine()
	c := fileComplaint(t, e)
	f := approveComplaint(t, e, c.ID).FIR
	k := convertFIR(t, e, f.ID).Case

	mustExecute(t, e, Command{
		Action:   ActionRecordJudgment,
		EntityID: k.ID,
		Actor:    testJudge,
		Payload:  payload(t, map[string]string{"decision": "ACQUITTED"}),
	})

	judgeID := types.NewID()
	_, err := e.Execute(context.Background(), Command{
		Action:   ActionScheduleHearing,
		EntityID: k.ID,
		Actor:    testJudge,
		Payload: payload(t, map[string]any{
			"date": "2026-05-01", "time": "11:00",
			"judgeId": judgeID, "courtroom": "Courtroom 1",
		}),
	})
	if !errors.IsPrecondition(err) {
		t.Fatalf("hearing on closed case: expected precondition failure, got %v", err)
	}

	_, err = e.Execute(context.Background(), Command{
		Action:   ActionRecordJudgment,
		EntityID: k.ID,
		Actor:    testJudge,
		Payload:  payload(t, map[string]string{"decision": "GUILTY"}),
	})
	if !errors.IsPrecondition(err) {
		t.Fatalf("second judgment: expected precondition failure, got %v", err)
	}
}

func TestDirectFIRHasNoCitizenToNotify(t *testing.T) {
	e, _ := testEngine()

	filed := mustExecute(t, e, Command{
		Action: ActionFileFIR,
		Actor:  testPolice,
		Payload: payload(t, map[string]string{
			"title":       "Highway robbery",
			"description": "Armed robbery on NH48",
			"category":    "ROBBERY",
			"location":    "NH48 km 42",
		}),
	})
	if len(filed.Notices) != 1 || filed.Notices[0].UserID != testPolice.ID {
		t.Error("direct FIR filing must notify the filing officer")
	}

	converted := convertFIR(t, e, filed.FIR.ID)
	if len(converted.Notices) != 0 {
		t.Errorf("conversion of a complaint-less FIR must notify nobody, got %d notices", len(converted.Notices))
	}
}

// stubDirectory is a fixed station set for FIR filing tests.
type stubDirectory map[string]*Station

func (d stubDirectory) Lookup(ctx context.Context, code string) (*Station, error) {
	st, ok := d[code]
	if !ok {
		return nil, errors.NotFound("station", code)
	}
	return st, nil
}

func TestFileFIRStationValidation(t *testing.T) {
	dir := stubDirectory{
		"HR-GGN-014": {Code: "HR-GGN-014", Name: "Sector 14 PS", District: "Gurugram", State: "Haryana", Active: true},
		"HR-GGN-099": {Code: "HR-GGN-099", Name: "Old City PS", District: "Gurugram", State: "Haryana", Active: false},
	}

	firPayload := func(station string) json.RawMessage {
		return json.RawMessage(fmt.Sprintf(
			`{"title":"t","description":"d","category":"THEFT","location":"l","stationCode":%q}`, station))
	}

	tests := []struct {
		name     string
		station  string
		wantCode string
	}{
		{"registered station", "HR-GGN-014", ""},
		{"unknown station", "XX-XXX-000", "VALIDATION_ERROR"},
		{"decommissioned station", "HR-GGN-099", "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := testEngine(WithStationDirectory(dir))
			_, err := e.Execute(context.Background(), Command{
				Action:  ActionFileFIR,
				Actor:   testPolice,
				Payload: firPayload(tt.station),
			})
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			appErr, ok := err.(*errors.AppError)
			if !ok || appErr.Code != tt.wantCode {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}
