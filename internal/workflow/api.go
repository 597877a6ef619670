package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nyayasetu/platform/internal/audit"
	"github.com/nyayasetu/platform/internal/notification"
	sharedauth "github.com/nyayasetu/platform/internal/shared/auth"
	"github.com/nyayasetu/platform/internal/shared/errors"
	"github.com/nyayasetu/platform/internal/shared/events"
	"github.com/nyayasetu/platform/internal/shared/metrics"
	"github.com/nyayasetu/platform/internal/shared/types"
)

// successMessages and eventTypes are keyed by action. The replay path
// carries its own message.
var successMessages = map[Action]string{
	ActionFileComplaint:    "Complaint filed successfully",
	ActionFileFIR:          "FIR registered successfully",
	ActionApproveComplaint: "Complaint approved and FIR initiated",
	ActionConvertFIRToCase: "FIR converted to court case",
	ActionScheduleHearing:  "Hearing scheduled",
	ActionRecordJudgment:   "Judgment recorded and case closed",
}

var eventTypes = map[Action]string{
	ActionFileComplaint:    "workflow.complaint.filed",
	ActionFileFIR:          "workflow.fir.filed",
	ActionApproveComplaint: "workflow.complaint.approved",
	ActionConvertFIRToCase: "workflow.fir.converted",
	ActionScheduleHearing:  "workflow.hearing.scheduled",
	ActionRecordJudgment:   "workflow.judgment.recorded",
}

// Handler is the HTTP boundary of the workflow. It owns the cross
// cutting flow around the engine: auditing, notification dispatch,
// event publication, and metrics.
type Handler struct {
	engine     *Engine
	dispatcher *notification.Dispatcher
	recorder   *audit.Recorder
	history    *HistoryReader
	bus        events.Publisher
}

func NewHandler(engine *Engine, dispatcher *notification.Dispatcher, recorder *audit.Recorder, history *HistoryReader, bus events.Publisher) *Handler {
	return &Handler{
		engine:     engine,
		dispatcher: dispatcher,
		recorder:   recorder,
		history:    history,
		bus:        bus,
	}
}

// Routes registers the workflow routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Execute)
	r.Get("/history/{entityType}/{entityID}", h.History)
	return r
}

type executeRequest struct {
	Action     Action          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Data       json.RawMessage `json:"data"`
}

// Execute runs one workflow action for the authenticated actor.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	actor := sharedauth.GetActor(r.Context())
	if actor == nil {
		// No resolvable actor, nothing to attribute a trail entry to.
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if req.Action == "" {
		writeError(w, errors.BadRequest("action is required"))
		return
	}

	cmd := Command{
		Action:     req.Action,
		EntityType: req.EntityType,
		Actor:      *actor,
		Payload:    req.Data,
	}
	if req.EntityID != "" {
		id, err := types.ParseID(req.EntityID)
		if err != nil {
			writeError(w, errors.BadRequest("invalid entity id"))
			return
		}
		cmd.EntityID = id
	}

	meta := audit.RequestMeta{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}

	res, err := h.engine.Execute(r.Context(), cmd)
	if err != nil {
		h.recordFailure(r, cmd, err, meta)
		writeError(w, err)
		return
	}

	metrics.RecordAuthorization(string(cmd.Action), string(actor.Role), true)

	if res.Replayed {
		metrics.RecordTransition(string(cmd.Action), "replayed")
		writeJSON(w, http.StatusOK, map[string]any{
			"message":              "FIR is already converted, returning the existing case",
			"replayed":             true,
			"result":               res,
			"notificationsCreated": 0,
		})
		return
	}
	metrics.RecordTransition(string(cmd.Action), "applied")

	dispatched := h.dispatcher.Dispatch(r.Context(), res.Notices)

	h.recordSuccess(r.Context(), cmd, res, dispatched, meta)
	h.publish(cmd, res)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":              successMessages[cmd.Action],
		"result":               res,
		"notificationsCreated": len(dispatched.Created),
	})
}

// recordFailure writes the denial trail entry. Only authorization
// refusals are audited: unauthenticated and not-found requests reveal
// nothing an actor did to an entity.
func (h *Handler) recordFailure(r *http.Request, cmd Command, err error, meta audit.RequestMeta) {
	if !errors.IsForbidden(err) {
		metrics.RecordTransition(string(cmd.Action), "rejected")
		return
	}

	metrics.RecordAuthorization(string(cmd.Action), string(cmd.Actor.Role), false)
	metrics.RecordTransition(string(cmd.Action), "denied")

	var entityID *types.ID
	if !cmd.EntityID.IsZero() {
		id := cmd.EntityID
		entityID = &id
	}
	details := map[string]any{
		"action": string(cmd.Action),
		"role":   string(cmd.Actor.Role),
	}
	if rerr := h.recorder.Record(r.Context(), cmd.Actor.ID, audit.ActionAccessDenied, cmd.EntityType, entityID, details, meta); rerr != nil {
		zap.S().Errorw("failed to record access denial", "action", cmd.Action, "error", rerr)
	}
}

// recordSuccess writes the applied-transition trail entry against the
// entity the action targeted, or the entity it created.
func (h *Handler) recordSuccess(ctx context.Context, cmd Command, res *TransitionResult, dispatched notification.Result, meta audit.RequestMeta) {
	entityType, entityID := auditTarget(cmd, res)

	details := map[string]any{
		"action": string(cmd.Action),
	}
	if len(cmd.Payload) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(cmd.Payload, &payload); err == nil {
			details["request"] = payload
		}
	}
	if ids := resultIDs(res); len(ids) > 0 {
		details["result"] = ids
	}
	if len(dispatched.Failures) > 0 {
		details["notification_failures"] = dispatched.Failures
	}

	if err := h.recorder.Record(ctx, cmd.Actor.ID, string(cmd.Action), entityType, &entityID, details, meta); err != nil {
		zap.S().Errorw("transition applied but trail entry failed",
			"action", cmd.Action, "entity_type", entityType, "error", err)
	}
}

// auditTarget picks the trail entity for an action. Filings attach to
// the entity they created; mutations attach to the entity they
// targeted, so lineage unions pick them up downstream.
func auditTarget(cmd Command, res *TransitionResult) (string, types.ID) {
	switch cmd.Action {
	case ActionFileComplaint:
		return EntityComplaint, res.Complaint.ID
	case ActionFileFIR:
		return EntityFIR, res.FIR.ID
	case ActionApproveComplaint:
		return EntityComplaint, cmd.EntityID
	case ActionConvertFIRToCase:
		return EntityFIR, cmd.EntityID
	default:
		return EntityCase, cmd.EntityID
	}
}

func resultIDs(res *TransitionResult) map[string]any {
	ids := make(map[string]any)
	if res.Complaint != nil {
		ids["complaint_id"] = res.Complaint.ID
	}
	if res.FIR != nil {
		ids["fir_id"] = res.FIR.ID
	}
	if res.Case != nil {
		ids["case_id"] = res.Case.ID
	}
	if res.Hearing != nil {
		ids["hearing_id"] = res.Hearing.ID
	}
	if res.Judgment != nil {
		ids["judgment_id"] = res.Judgment.ID
	}
	return ids
}

// publish emits the transition event off the request path. A committed
// transition never fails because the stream is down.
func (h *Handler) publish(cmd Command, res *TransitionResult) {
	if h.bus == nil {
		return
	}
	eventType, ok := eventTypes[cmd.Action]
	if !ok {
		return
	}

	event := events.NewEvent(eventType, "workflow", res).
		WithActor(cmd.Actor.ID, string(cmd.Actor.Role))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.bus.Publish(ctx, event); err != nil {
			zap.S().Warnw("failed to publish transition event",
				"event_type", eventType, "error", err)
		}
	}()
}

// History returns the lineage-wide trail of an entity, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor := sharedauth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	entityType := chi.URLParam(r, "entityType")
	id, err := types.ParseID(chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid entity id"))
		return
	}

	entries, err := h.history.History(r.Context(), entityType, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entityType": entityType,
		"entityId":   id,
		"history":    entries,
		"total":      len(entries),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
