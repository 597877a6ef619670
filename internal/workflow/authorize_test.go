package workflow

import (
	"testing"

	"github.com/nyayasetu/platform/internal/auth"
)

func TestAuthorizeGrid(t *testing.T) {
	allRoles := []auth.Role{
		auth.RoleCitizen, auth.RolePolice, auth.RoleJudge,
		auth.RoleCourtStaff, auth.RoleLawyer, auth.RoleAdmin,
	}

	allowed := map[Action]map[auth.Role]bool{
		ActionFileComplaint:    {auth.RoleCitizen: true},
		ActionFileFIR:          {auth.RolePolice: true},
		ActionApproveComplaint: {auth.RolePolice: true, auth.RoleAdmin: true},
		ActionConvertFIRToCase: {auth.RolePolice: true, auth.RoleAdmin: true},
		ActionScheduleHearing:  {auth.RoleJudge: true, auth.RoleCourtStaff: true, auth.RoleAdmin: true},
		ActionRecordJudgment:   {auth.RoleJudge: true},
	}

	for action, roles := range allowed {
		for _, role := range allRoles {
			want := roles[role]
			if got := Authorize(action, role); got != want {
				t.Errorf("Authorize(%s, %s) = %v, want %v", action, role, got, want)
			}
		}
	}
}

func TestAuthorizeUnknownAction(t *testing.T) {
	if Authorize(Action("DELETE_EVERYTHING"), auth.RoleAdmin) {
		t.Error("unknown action must be denied even for admins")
	}
}

func TestAuthorizeUnknownRole(t *testing.T) {
	for action := range actionRoles {
		if Authorize(action, auth.Role("SUPERUSER")) {
			t.Errorf("unknown role must be denied for %s", action)
		}
	}
}
