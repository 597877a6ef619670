package workflow

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/nyayasetu/platform/internal/shared/types"
)

// ComplaintStatus defines the status of a citizen complaint
type ComplaintStatus string

const (
	ComplaintStatusSubmitted   ComplaintStatus = "SUBMITTED"
	ComplaintStatusUnderReview ComplaintStatus = "UNDER_REVIEW"
	ComplaintStatusApproved    ComplaintStatus = "APPROVED"
	ComplaintStatusRejected    ComplaintStatus = "REJECTED"
)

// FIRStatus defines the status of a First Information Report
type FIRStatus string

const (
	FIRStatusDraft              FIRStatus = "DRAFT"
	FIRStatusSubmitted          FIRStatus = "SUBMITTED"
	FIRStatusUnderInvestigation FIRStatus = "UNDER_INVESTIGATION"
	FIRStatusConvertedToCase    FIRStatus = "CONVERTED_TO_CASE"
	FIRStatusClosed             FIRStatus = "CLOSED"
)

// CaseStatus defines the status of a court case
type CaseStatus string

const (
	CaseStatusPending  CaseStatus = "PENDING"
	CaseStatusHearing  CaseStatus = "HEARING"
	CaseStatusJudgment CaseStatus = "JUDGMENT"
	CaseStatusClosed   CaseStatus = "CLOSED"
)

// HearingStatus defines the status of a scheduled hearing
type HearingStatus string

const (
	HearingStatusScheduled HearingStatus = "SCHEDULED"
	HearingStatusCompleted HearingStatus = "COMPLETED"
	HearingStatusCancelled HearingStatus = "CANCELLED"
)

// HearingType defines the kind of hearing
type HearingType string

const (
	HearingTypeRegular HearingType = "REGULAR"
	HearingTypeUrgent  HearingType = "URGENT"
	HearingTypeFinal   HearingType = "FINAL"
)

// JudgmentStatus defines the status of a judgment
type JudgmentStatus string

const (
	JudgmentStatusDraft     JudgmentStatus = "DRAFT"
	JudgmentStatusPublished JudgmentStatus = "PUBLISHED"
)

// Priority defines entity priority
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Complaint is a citizen-filed initial grievance record
type Complaint struct {
	ID              types.ID        `json:"id"`
	ComplaintNumber string          `json:"complaint_number"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Priority        Priority        `json:"priority"`
	Status          ComplaintStatus `json:"status"`
	Location        string          `json:"location,omitempty"`
	Jurisdiction    string          `json:"jurisdiction,omitempty"`
	CitizenID       types.ID        `json:"citizen_id"`
	ApprovedBy      *types.ID       `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FIR is a formal police record of a cognizable incident, optionally
// derived from a Complaint. ComplaintID is a one-way lineage pointer:
// never cleared once set.
type FIR struct {
	ID           types.ID  `json:"id"`
	FIRNumber    string    `json:"fir_number"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ComplaintID  *types.ID `json:"complaint_id,omitempty"`
	FiledBy      types.ID  `json:"filed_by"`
	Status       FIRStatus `json:"status"`
	Priority     Priority  `json:"priority"`
	Category     string    `json:"category"`
	Location     string    `json:"location,omitempty"`
	Jurisdiction string    `json:"jurisdiction,omitempty"`
	StationCode  string    `json:"station_code,omitempty"`
	CaseID       *types.ID `json:"case_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Case is a court-tracked proceeding derived from exactly one FIR
type Case struct {
	ID              types.ID   `json:"id"`
	CaseNumber      string     `json:"case_number"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	FIRID           types.ID   `json:"fir_id"`
	ComplaintID     *types.ID  `json:"complaint_id,omitempty"`
	Plaintiff       string     `json:"plaintiff"`
	Defendant       string     `json:"defendant"`
	Status          CaseStatus `json:"status"`
	Priority        Priority   `json:"priority"`
	Category        string     `json:"category"`
	CourtID         *types.ID  `json:"court_id,omitempty"`
	NextHearingDate string     `json:"next_hearing_date,omitempty"`
	JudgmentID      *types.ID  `json:"judgment_id,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Hearing is a scheduled court sitting for a case
type Hearing struct {
	ID          types.ID      `json:"id"`
	CaseID      types.ID      `json:"case_id"`
	Date        string        `json:"date"`
	Time        string        `json:"time"`
	Type        HearingType   `json:"type"`
	JudgeID     types.ID      `json:"judge_id"`
	Courtroom   string        `json:"courtroom"`
	Status      HearingStatus `json:"status"`
	ScheduledBy types.ID      `json:"scheduled_by"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Judgment is the terminal decision record that closes a case
type Judgment struct {
	ID        types.ID       `json:"id"`
	CaseID    types.ID       `json:"case_id"`
	Summary   string         `json:"summary"`
	Decision  string         `json:"decision"`
	Reasoning string         `json:"reasoning"`
	JudgeID   types.ID       `json:"judge_id"`
	Status    JudgmentStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

const numberSuffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewComplaintNumber generates a human-readable complaint number.
// Format: COMP-<unix-millis>-<9-char suffix>. Uniqueness is enforced by
// the repository; a collision surfaces as a retryable Conflict.
func NewComplaintNumber(now time.Time) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = numberSuffixAlphabet[rand.Intn(len(numberSuffixAlphabet))]
	}
	return fmt.Sprintf("COMP-%d-%s", now.UnixMilli(), suffix)
}

// NewFIRNumber generates a human-readable FIR number: FIR/<year>/<4-digit>
func NewFIRNumber(now time.Time) string {
	return fmt.Sprintf("FIR/%d/%04d", now.Year(), rand.Intn(10000))
}

// NewCaseNumber generates a human-readable case number: CASE/<year>/<4-digit>
func NewCaseNumber(now time.Time) string {
	return fmt.Sprintf("CASE/%d/%04d", now.Year(), rand.Intn(10000))
}
