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

// AdminHandler is the operator surface: credential pool management and
// stuck-execution visibility. Every route requires an elevated caller.
type AdminHandler struct {
	accountService *service.AccountService
	stuckThreshold time.Duration
}

func NewAdminHandler(accountService *service.AccountService, stuckThreshold time.Duration) *AdminHandler {
	return &AdminHandler{
		accountService: accountService,
		stuckThreshold: stuckThreshold,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.requireElevated)

	r.Get("/accounts", h.ListAccounts)
	r.Post("/accounts", h.CreateAccount)
	r.Delete("/accounts/{id}", h.DeleteAccount)
	r.Post("/accounts/{id}/enable", h.EnableAccount)
	r.Post("/accounts/{id}/disable", h.DisableAccount)

	r.Get("/actions/stuck", h.StuckActions)

	return r
}

func (h *AdminHandler) requireElevated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := middleware.GetIdentity(r.Context())
		if identity == nil {
			writeError(w, apperrors.Unauthorized("Missing authentication"))
			return
		}
		if !identity.Caller.Elevated {
			writeError(w, apperrors.Forbidden("Operator access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	page := ParsePagination(r)

	accounts, err := h.accountService.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page.Page("accounts", accounts, -1))
}

func (h *AdminHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel  string  `json:"channel"`
		Identity string  `json:"identity"`
		Secret   string  `json:"secret"`
		ProxyURL *string `json:"proxyUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	account, err := h.accountService.Create(r.Context(), model.CreateExecutionAccountParams{
		Channel:  model.ChannelKind(req.Channel),
		Identity: req.Identity,
		Secret:   req.Secret,
		ProxyURL: req.ProxyURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (h *AdminHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.accountService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) EnableAccount(w http.ResponseWriter, r *http.Request) {
	h.setAccountActive(w, r, true)
}

func (h *AdminHandler) DisableAccount(w http.ResponseWriter, r *http.Request) {
	h.setAccountActive(w, r, false)
}

func (h *AdminHandler) setAccountActive(w http.ResponseWriter, r *http.Request, active bool) {
	account, err := h.accountService.SetActive(r.Context(), chi.URLParam(r, "id"), active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// GET /v1/admin/actions/stuck
// Actions sitting in executing past the reconcile threshold.
func (h *AdminHandler) StuckActions(w http.ResponseWriter, r *http.Request) {
	stuck, err := h.accountService.StuckActions(r.Context(), h.stuckThreshold)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"actions": stuck,
		"count":   len(stuck),
	})
}
