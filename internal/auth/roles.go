// Package auth provides the actor and role types for the justice platform.
package auth

import (
	"github.com/nyayasetu/platform/internal/shared/types"
)

// Role represents a user role in the system.
type Role string

const (
	RoleCitizen    Role = "CITIZEN"     // Files complaints, receives case updates
	RolePolice     Role = "POLICE"      // Files FIRs, approves complaints
	RoleJudge      Role = "JUDGE"       // Schedules hearings, records judgments
	RoleCourtStaff Role = "COURT_STAFF" // Schedules hearings
	RoleLawyer     Role = "LAWYER"      // Read access to assigned cases
	RoleAdmin      Role = "ADMIN"       // Full administrative access
)

var knownRoles = map[Role]bool{
	RoleCitizen:    true,
	RolePolice:     true,
	RoleJudge:      true,
	RoleCourtStaff: true,
	RoleLawyer:     true,
	RoleAdmin:      true,
}

// ParseRole validates a role string against the known role set.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, knownRoles[r]
}

// Actor is the authenticated identity a workflow request runs as. The
// identity layer resolves it; the engine only ever checks role sufficiency.
type Actor struct {
	ID   types.ID `json:"id"`
	Role Role     `json:"role"`
}
