package notification

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	sharedauth "github.com/nyayasetu/platform/internal/shared/auth"
	"github.com/nyayasetu/platform/internal/shared/errors"
	"github.com/nyayasetu/platform/internal/shared/types"
)

// Handler provides the notification read API. Every route is scoped to
// the authenticated actor: a user only ever sees their own rows.
type Handler struct {
	store Store
	hub   *Hub
}

func NewHandler(store Store, hub *Hub) *Handler {
	return &Handler{store: store, hub: hub}
}

// Routes registers the notification routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/ws", h.LiveSession)
	r.Post("/{notificationID}/read", h.MarkRead)
	return r
}

// List returns the actor's notifications, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := sharedauth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	filter := ListFilter{Limit: 50}
	if v := r.URL.Query().Get("unreadOnly"); v == "true" {
		filter.UnreadOnly = true
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	items, total, err := h.store.ListByUser(r.Context(), actor.ID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []Notification{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"total":         total,
	})
}

// MarkRead marks one of the actor's notifications as read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor := sharedauth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "notificationID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid notification id"))
		return
	}

	if err := h.store.MarkRead(r.Context(), id, actor.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// LiveSession upgrades the request into the actor's live push session.
func (h *Handler) LiveSession(w http.ResponseWriter, r *http.Request) {
	actor := sharedauth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}
	if h.hub == nil {
		writeError(w, errors.BadRequest("live notifications are not enabled"))
		return
	}
	h.hub.Serve(w, r, actor.ID)
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
