package workflow

import (
	"encoding/json"

	"github.com/nyayasetu/platform/internal/auth"
	"github.com/nyayasetu/platform/internal/shared/errors"
	"github.com/nyayasetu/platform/internal/shared/types"
)

// Action names one workflow transition. The set is closed: the engine
// dispatches over it exhaustively and unknown actions are denied before
// any storage access.
type Action string

const (
	ActionFileComplaint    Action = "FILE_COMPLAINT"
	ActionFileFIR          Action = "FILE_FIR"
	ActionApproveComplaint Action = "APPROVE_COMPLAINT"
	ActionConvertFIRToCase Action = "CONVERT_FIR_TO_CASE"
	ActionScheduleHearing  Action = "SCHEDULE_HEARING"
	ActionRecordJudgment   Action = "RECORD_JUDGMENT"
)

// Command is one workflow transition request. The actor is passed
// explicitly: the engine never reads identity from ambient state.
type Command struct {
	Action     Action          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   types.ID        `json:"entityId"`
	Actor      auth.Actor      `json:"-"`
	Payload    json.RawMessage `json:"data"`
}

// FileComplaintPayload carries the citizen filing input
type FileComplaintPayload struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Priority     Priority `json:"priority"`
	Location     string   `json:"location"`
	Jurisdiction string   `json:"jurisdiction"`
}

// FileFIRPayload carries the direct police filing input
type FileFIRPayload struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Priority     Priority `json:"priority"`
	Location     string   `json:"location"`
	Jurisdiction string   `json:"jurisdiction"`
	StationCode  string   `json:"stationCode"`
}

// ApproveComplaintPayload optionally designates the investigating officer
// the derived FIR is assigned to. When absent the approver files it.
type ApproveComplaintPayload struct {
	AssignedTo *types.ID `json:"assignedTo,omitempty"`
}

// ConvertFIRPayload carries the optional court assignment
type ConvertFIRPayload struct {
	CourtID *types.ID `json:"courtId,omitempty"`
}

// ScheduleHearingPayload carries the hearing slot
type ScheduleHearingPayload struct {
	Date      string      `json:"date"`
	Time      string      `json:"time"`
	Type      HearingType `json:"type,omitempty"`
	JudgeID   types.ID    `json:"judgeId"`
	Courtroom string      `json:"courtroom"`
}

// RecordJudgmentPayload carries the decision text
type RecordJudgmentPayload struct {
	Summary   string `json:"summary"`
	Decision  string `json:"decision"`
	Reasoning string `json:"reasoning"`
}

// decodePayload unmarshals the raw payload into the action's input struct.
// A nil payload decodes to the zero value so actions without required
// fields stay callable with an empty body.
func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.BadRequest("malformed action payload")
	}
	return nil
}
