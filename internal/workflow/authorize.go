package workflow

import (
	"github.com/nyayasetu/platform/internal/auth"
)

// actionRoles is the fixed authorization table: which roles may trigger
// which transition. Roles absent from an action's set are denied, and
// unknown actions have no entry at all, so the check is deny-by-default.
var actionRoles = map[Action][]auth.Role{
	ActionFileComplaint:    {auth.RoleCitizen},
	ActionFileFIR:          {auth.RolePolice},
	ActionApproveComplaint: {auth.RolePolice, auth.RoleAdmin},
	ActionConvertFIRToCase: {auth.RolePolice, auth.RoleAdmin},
	ActionScheduleHearing:  {auth.RoleJudge, auth.RoleCourtStaff, auth.RoleAdmin},
	ActionRecordJudgment:   {auth.RoleJudge},
}

// Authorize reports whether the role may trigger the action. Pure, no I/O.
func Authorize(action Action, role auth.Role) bool {
	for _, r := range actionRoles[action] {
		if r == role {
			return true
		}
	}
	return false
}
