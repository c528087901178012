package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/commentflow/outreach-server-go/internal/errors"
	"github.com/commentflow/outreach-server-go/internal/middleware"
	"github.com/commentflow/outreach-server-go/internal/model"
	"github.com/commentflow/outreach-server-go/internal/service"
)

// Statuses a caller may request directly. Executing and completed are
// owned by the dispatcher.
var callerSettableStatuses = map[model.ActionStatus]bool{
	model.ActionStatusApproved:      true,
	model.ActionStatusPendingReview: true,
	model.ActionStatusScheduled:     true,
	model.ActionStatusSkipped:       true,
}

type ActionHandler struct {
	actionService    *service.ActionService
	executionService *service.ExecutionService
}

func NewActionHandler(actionService *service.ActionService, executionService *service.ExecutionService) *ActionHandler {
	return &ActionHandler{
		actionService:    actionService,
		executionService: executionService,
	}
}

func (h *ActionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/batch-approve", h.BatchApprove)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/execute", h.Execute)

	return r
}

func (h *ActionHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, apperrors.Unauthorized("Missing authentication"))
		return
	}

	page := ParsePagination(r)
	filter := model.ActionFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	if v := r.URL.Query().Get("businessId"); v != "" {
		filter.BusinessID = &v
	}
	if v := r.URL.Query().Get("platform"); v != "" {
		filter.Platform = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := model.ActionStatus(v)
		if !model.IsValidStatus(status) {
			writeError(w, apperrors.InvalidInput("status", "unknown status"))
			return
		}
		filter.Status = &status
	}

	actions, total, err := h.actionService.List(r.Context(), identity, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page.Page("actions", actions, total))
}

func (h *ActionHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, apperrors.Unauthorized("Missing authentication"))
		return
	}

	action, err := h.actionService.Get(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, action)
}

// PATCH /v1/actions/{id}
// Accepted fields: status, editedCommentText, scheduledFor. A status
// change runs through the transition table; field edits apply first so a
// combined edit-and-approve request approves the edited text.
func (h *ActionHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, apperrors.Unauthorized("Missing authentication"))
		return
	}

	var req struct {
		Status            *string    `json:"status"`
		EditedCommentText *string    `json:"editedCommentText"`
		ScheduledFor      *time.Time `json:"scheduledFor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}
	if req.Status == nil && req.EditedCommentText == nil && req.ScheduledFor == nil {
		writeError(w, apperrors.MissingRequired("status, editedCommentText or scheduledFor"))
		return
	}

	actionID := chi.URLParam(r, "id")
	ctx := r.Context()

	var action *model.Action
	var err error

	if req.EditedCommentText != nil || req.ScheduledFor != nil {
		action, err = h.actionService.Update(ctx, identity, actionID, model.UpdateActionParams{
			EditedCommentText: req.EditedCommentText,
			ScheduledFor:      req.ScheduledFor,
		})
		if err != nil {
			writeError(w, err)
			return
		}
	}

	if req.Status != nil {
		status := model.ActionStatus(*req.Status)
		if !callerSettableStatuses[status] {
			writeError(w, apperrors.InvalidInput("status", "status cannot be set directly"))
			return
		}
		action, err = h.actionService.Transition(ctx, identity, actionID, status)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, action)
}

func (h *ActionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, apperrors.Unauthorized("Missing authentication"))
		return
	}

	if err := h.actionService.Delete(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /v1/actions/batch-approve
func (h *ActionHandler) BatchApprove(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, apperrors.Unauthorized("Missing authentication"))
		return
	}

	var req struct {
		ActionIDs []string `json:"actionIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	approved, err := h.actionService.BatchApprove(r.Context(), identity, req.ActionIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"approved": approved,
		"count":    len(approved),
	})
}

// POST /v1/actions/{id}/execute
func (h *ActionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, apperrors.Unauthorized("Missing authentication"))
		return
	}

	var req struct {
		Force bool `json:"force"`
	}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
			return
		}
	}

	result, err := h.executionService.Execute(r.Context(), identity, chi.URLParam(r, "id"), req.Force)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
