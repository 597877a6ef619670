package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyayasetu/platform/internal/audit"
	"github.com/nyayasetu/platform/internal/auth"
	"github.com/nyayasetu/platform/internal/notification"
	sharedauth "github.com/nyayasetu/platform/internal/shared/auth"
	"github.com/nyayasetu/platform/internal/shared/types"
)

type apiFixture struct {
	handler *Handler
	router  chi.Router
	engine  *Engine
	repo    *MemoryRepository
	audits  *audit.MemoryStore
	notifs  *notification.MemoryStore
}

func newAPIFixture() *apiFixture {
	repo := NewMemoryRepository()
	engine := NewEngine(repo)
	audits := audit.NewMemoryStore()
	notifs := notification.NewMemoryStore()

	handler := NewHandler(
		engine,
		notification.NewDispatcher(notifs, nil),
		audit.NewRecorder(audits),
		NewHistoryReader(repo, audits, StaticDirectory{}),
		nil,
	)

	router := chi.NewRouter()
	router.Mount("/workflow", handler.Routes())

	return &apiFixture{
		handler: handler,
		router:  router,
		engine:  engine,
		repo:    repo,
		audits:  audits,
		notifs:  notifs,
	}
}

func (fx *apiFixture) do(t *testing.T, actor *auth.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != nil {
		req = req.WithContext(sharedauth.WithActor(req.Context(), actor))
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestExecuteRequiresAuthentication(t *testing.T) {
	fx := newAPIFixture()

	rec := fx.do(t, nil, http.MethodPost, "/workflow/", map[string]any{
		"action": "FILE_COMPLAINT",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, fx.audits.All(), "unauthenticated requests leave no trail")
}

func TestExecuteDenialIsAudited(t *testing.T) {
	fx := newAPIFixture()
	citizen := &auth.Actor{ID: types.NewID(), Role: auth.RoleCitizen}

	rec := fx.do(t, citizen, http.MethodPost, "/workflow/", map[string]any{
		"action":     "APPROVE_COMPLAINT",
		"entityType": "complaint",
		"entityId":   types.NewID(),
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)

	entries := fx.audits.All()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionAccessDenied, entries[0].Action)
	assert.Equal(t, citizen.ID, entries[0].ActorID)
	assert.Equal(t, "CITIZEN", entries[0].Details["role"])
}

func TestExecuteFileComplaint(t *testing.T) {
	fx := newAPIFixture()
	citizen := &auth.Actor{ID: types.NewID(), Role: auth.RoleCitizen}

	rec := fx.do(t, citizen, http.MethodPost, "/workflow/", map[string]any{
		"action": "FILE_COMPLAINT",
		"data": map[string]string{
			"title":       "Chain snatching",
			"description": "Incident near metro station",
			"category":    "THEFT",
		},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Complaint filed successfully", body["message"])
	assert.EqualValues(t, 1, body["notificationsCreated"])

	entries := fx.audits.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "FILE_COMPLAINT", entries[0].Action)
	assert.Equal(t, EntityComplaint, entries[0].EntityType)
	assert.True(t, entries[0].VerifyHash())

	_, total, err := fx.notifs.ListByUser(context.Background(), citizen.ID, notification.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestExecuteValidationFailureIsNotAudited(t *testing.T) {
	fx := newAPIFixture()
	citizen := &auth.Actor{ID: types.NewID(), Role: auth.RoleCitizen}

	rec := fx.do(t, citizen, http.MethodPost, "/workflow/", map[string]any{
		"action": "FILE_COMPLAINT",
		"data":   map[string]string{"title": "missing everything else"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fx.audits.All(), "validation failures change nothing, so nothing is trailed")
}

func TestExecuteFullLifecycleOverHTTP(t *testing.T) {
	fx := newAPIFixture()
	citizen := &auth.Actor{ID: types.NewID(), Role: auth.RoleCitizen}
	police := &auth.Actor{ID: types.NewID(), Role: auth.RolePolice}
	judge := &auth.Actor{ID: types.NewID(), Role: auth.RoleJudge}

	rec := fx.do(t, citizen, http.MethodPost, "/workflow/", map[string]any{
		"action": "FILE_COMPLAINT",
		"data": map[string]string{
			"title": "Fraud", "description": "UPI fraud", "category": "FRAUD",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	complaintID := decodeBody(t, rec)["result"].(map[string]any)["complaint"].(map[string]any)["id"].(string)

	rec = fx.do(t, police, http.MethodPost, "/workflow/", map[string]any{
		"action": "APPROVE_COMPLAINT", "entityType": "complaint", "entityId": complaintID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	firID := decodeBody(t, rec)["result"].(map[string]any)["fir"].(map[string]any)["id"].(string)

	rec = fx.do(t, police, http.MethodPost, "/workflow/", map[string]any{
		"action": "CONVERT_FIR_TO_CASE", "entityType": "fir", "entityId": firID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	caseID := decodeBody(t, rec)["result"].(map[string]any)["case"].(map[string]any)["id"].(string)

	rec = fx.do(t, judge, http.MethodPost, "/workflow/", map[string]any{
		"action": "RECORD_JUDGMENT", "entityType": "case", "entityId": caseID,
		"data": map[string]string{"decision": "GUILTY"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Case history unions the whole lineage.
	rec = fx.do(t, judge, http.MethodGet, fmt.Sprintf("/workflow/history/case/%s", caseID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 4, body["total"])

	history := body["history"].([]any)
	first := history[0].(map[string]any)
	assert.Equal(t, "RECORD_JUDGMENT", first["action"], "history is newest first")
}

func TestExecuteReplayReturnsExistingCase(t *testing.T) {
	fx := newAPIFixture()
	police := &auth.Actor{ID: types.NewID(), Role: auth.RolePolice}

	filed := fx.do(t, police, http.MethodPost, "/workflow/", map[string]any{
		"action": "FILE_FIR",
		"data": map[string]string{
			"title": "Burglary", "description": "Break-in at warehouse", "category": "BURGLARY", "location": "MIDC",
		},
	})
	require.Equal(t, http.StatusOK, filed.Code)
	firID := decodeBody(t, filed)["result"].(map[string]any)["fir"].(map[string]any)["id"].(string)

	convert := map[string]any{"action": "CONVERT_FIR_TO_CASE", "entityType": "fir", "entityId": firID}
	first := fx.do(t, police, http.MethodPost, "/workflow/", convert)
	require.Equal(t, http.StatusOK, first.Code)
	caseID := decodeBody(t, first)["result"].(map[string]any)["case"].(map[string]any)["id"].(string)
	trailBefore := len(fx.audits.All())

	second := fx.do(t, police, http.MethodPost, "/workflow/", convert)
	require.Equal(t, http.StatusOK, second.Code)
	body := decodeBody(t, second)
	assert.Equal(t, true, body["replayed"])
	assert.Equal(t, float64(0), body["notificationsCreated"])
	replayedCaseID := body["result"].(map[string]any)["case"].(map[string]any)["id"].(string)
	assert.Equal(t, caseID, replayedCaseID)

	assert.Len(t, fx.audits.All(), trailBefore, "a replay applies nothing and trails nothing")
}

func TestExecuteRecordsNotificationFailures(t *testing.T) {
	fx := newAPIFixture()
	citizen := &auth.Actor{ID: types.NewID(), Role: auth.RoleCitizen}
	fx.notifs.FailFor(citizen.ID, fmt.Errorf("connection reset"))

	rec := fx.do(t, citizen, http.MethodPost, "/workflow/", map[string]any{
		"action": "FILE_COMPLAINT",
		"data": map[string]string{
			"title": "Littering", "description": "Dumping near lake", "category": "CIVIC",
		},
	})

	// Notification failure never blocks the transition.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeBody(t, rec)["notificationsCreated"])

	entries := fx.audits.All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Details, "notification_failures")
}

func TestHistoryRequiresAuthentication(t *testing.T) {
	fx := newAPIFixture()

	rec := fx.do(t, nil, http.MethodGet, fmt.Sprintf("/workflow/history/case/%s", types.NewID()), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryUnknownEntity(t *testing.T) {
	fx := newAPIFixture()
	judge := &auth.Actor{ID: types.NewID(), Role: auth.RoleJudge}

	rec := fx.do(t, judge, http.MethodGet, fmt.Sprintf("/workflow/history/case/%s", types.NewID()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
