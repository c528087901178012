package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/commentflow/outreach-server-go/internal/errors"
	"github.com/commentflow/outreach-server-go/internal/middleware"
	"github.com/commentflow/outreach-server-go/internal/service"
)

type UsageHandler struct {
	quotaService *service.QuotaService
}

func NewUsageHandler(quotaService *service.QuotaService) *UsageHandler {
	return &UsageHandler{quotaService: quotaService}
}

func (h *UsageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Current)
	return r
}

// GET /v1/usage
// Current billing period usage for the effective customer.
func (h *UsageHandler) Current(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, apperrors.Unauthorized("Missing authentication"))
		return
	}

	entry, err := h.quotaService.Current(r.Context(), identity.Effective.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		writeError(w, apperrors.ResourceExhausted("No active billing period"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"periodStart":     entry.PeriodStart,
		"periodEnd":       entry.PeriodEnd,
		"actionsLimit":    entry.ActionsLimit,
		"actionsUsed":     entry.ActionsUsed,
		"actionsReserved": entry.ActionsReserved,
		"remaining":       entry.Remaining(),
	})
}
