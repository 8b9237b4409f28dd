package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tripdesk/internal/leads/service"
	"tripdesk/pkg/auth"
	apperrors "tripdesk/pkg/errors"
	httputil "tripdesk/pkg/http"
	"tripdesk/pkg/logger"
	"tripdesk/pkg/model"
)

type LeadHandler struct {
	service    service.LeadService
	cronSecret string
	pageSize   int
	log        *logger.Logger
}

func NewLeadHandler(service service.LeadService, cronSecret string, pageSize int, log *logger.Logger) *LeadHandler {
	return &LeadHandler{
		service:    service,
		cronSecret: cronSecret,
		pageSize:   pageSize,
		log:        log,
	}
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var lead model.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	actor, _ := auth.SessionFromContext(r.Context())
	if err := h.service.Create(r.Context(), actor, &lead); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, lead); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *LeadHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())

	lead, err := h.service.Get(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, lead); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())
	query := r.URL.Query()

	page, err := httputil.ExtractPage(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	opts := service.ListOptions{
		Stage:    model.Stage(query.Get("stage")),
		TripType: query.Get("trip_type"),
		Search:   query.Get("search"),
		Page:     page,
		Board:    query.Get("view") == "board",
	}

	leads, total, err := h.service.List(r.Context(), actor, opts)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if opts.Board {
		if err := httputil.WriteSuccess(w, leads); err != nil {
			h.log.Error("failed to write success response", "handler", "List", "error", err)
		}
		return
	}

	if err := httputil.WritePaginated(w, leads, total, page, h.pageSize); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "error", err)
	}
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.LeadUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	actor, _ := auth.SessionFromContext(r.Context())
	if err := h.service.UpdateDetails(r.Context(), actor, ps.ByName("id"), &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())

	if err := h.service.Delete(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *LeadHandler) ChangeStage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Stage model.Stage `json:"stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "ChangeStage", apperrors.InvalidInput("Invalid request body"))
		return
	}

	actor, _ := auth.SessionFromContext(r.Context())
	lead, err := h.service.ChangeStage(r.Context(), actor, ps.ByName("id"), body.Stage)
	if err != nil {
		h.writeError(w, "ChangeStage", err)
		return
	}

	if err := httputil.WriteMutation(w, http.StatusOK, httputil.MutationResponse{
		Success: true,
		Message: "Stage updated to " + body.Stage.Label(),
		Data:    lead,
	}); err != nil {
		h.log.Error("failed to write mutation response", "handler", "ChangeStage", "error", err)
	}
}

func (h *LeadHandler) Assign(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		AgentID string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "Assign", apperrors.InvalidInput("Invalid request body"))
		return
	}

	actor, _ := auth.SessionFromContext(r.Context())

	// An empty or "unassigned" target clears the assignment.
	if body.AgentID == "" || body.AgentID == "unassigned" {
		if err := h.service.Unassign(r.Context(), actor, ps.ByName("id")); err != nil {
			h.writeError(w, "Assign", err)
			return
		}
		if err := httputil.WriteMutation(w, http.StatusOK, httputil.MutationResponse{
			Success: true,
			Message: "Lead unassigned",
		}); err != nil {
			h.log.Error("failed to write mutation response", "handler", "Assign", "error", err)
		}
		return
	}

	result, err := h.service.Assign(r.Context(), actor, ps.ByName("id"), body.AgentID)
	if err != nil {
		h.writeError(w, "Assign", err)
		return
	}

	if err := httputil.WriteMutation(w, http.StatusOK, httputil.MutationResponse{
		Success: true,
		Message: "Lead assigned",
		Warning: result.Warning,
		Data:    result,
	}); err != nil {
		h.log.Error("failed to write mutation response", "handler", "Assign", "error", err)
	}
}

func (h *LeadHandler) BulkAssign(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		LeadIDs []string `json:"lead_ids"`
		AgentID string   `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "BulkAssign", apperrors.InvalidInput("Invalid request body"))
		return
	}

	actor, _ := auth.SessionFromContext(r.Context())
	result, err := h.service.BulkAssign(r.Context(), actor, body.LeadIDs, body.AgentID)
	if err != nil {
		h.writeError(w, "BulkAssign", err)
		return
	}

	if err := httputil.WriteMutation(w, http.StatusOK, httputil.MutationResponse{
		Success: true,
		Message: "Leads assigned",
		Warning: result.Warning,
		Data:    result,
	}); err != nil {
		h.log.Error("failed to write mutation response", "handler", "BulkAssign", "error", err)
	}
}

func (h *LeadHandler) Unassign(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())

	if err := h.service.Unassign(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "Unassign", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *LeadHandler) AddComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "AddComment", apperrors.InvalidInput("Invalid request body"))
		return
	}

	actor, _ := auth.SessionFromContext(r.Context())
	if err := h.service.AddComment(r.Context(), actor, ps.ByName("id"), body.Text); err != nil {
		h.writeError(w, "AddComment", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *LeadHandler) RefreshTimer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())

	if err := h.service.RefreshTimer(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "RefreshTimer", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *LeadHandler) Activities(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())

	activities, err := h.service.Activities(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Activities", err)
		return
	}

	if err := httputil.WriteSuccess(w, activities); err != nil {
		h.log.Error("failed to write success response", "handler", "Activities", "error", err)
	}
}

func (h *LeadHandler) AddTraveler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var traveler model.Traveler
	if err := json.NewDecoder(r.Body).Decode(&traveler); err != nil {
		h.writeError(w, "AddTraveler", apperrors.InvalidInput("Invalid request body"))
		return
	}

	actor, _ := auth.SessionFromContext(r.Context())
	lead, err := h.service.AddTraveler(r.Context(), actor, ps.ByName("id"), traveler)
	if err != nil {
		h.writeError(w, "AddTraveler", err)
		return
	}

	if err := httputil.WriteSuccess(w, lead); err != nil {
		h.log.Error("failed to write success response", "handler", "AddTraveler", "error", err)
	}
}

func (h *LeadHandler) RemoveTraveler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())
	lead, err := h.service.RemoveTraveler(r.Context(), actor, ps.ByName("id"), ps.ByName("ref"))
	if err != nil {
		h.writeError(w, "RemoveTraveler", err)
		return
	}

	if err := httputil.WriteSuccess(w, lead); err != nil {
		h.log.Error("failed to write success response", "handler", "RemoveTraveler", "error", err)
	}
}

func (h *LeadHandler) DocumentStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())

	report, err := h.service.DocumentStatus(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "DocumentStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, report); err != nil {
		h.log.Error("failed to write success response", "handler", "DocumentStatus", "error", err)
	}
}

// SweepStale is invoked by the scheduler, authenticated by a shared
// secret header instead of a user session.
func (h *LeadHandler) SweepStale(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	secret := r.Header.Get("X-Cron-Secret")
	if h.cronSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(h.cronSecret)) != 1 {
		h.writeError(w, "SweepStale", apperrors.Unauthorized("Invalid cron secret"))
		return
	}

	result, err := h.service.SweepStale(r.Context())
	if err != nil {
		h.writeError(w, "SweepStale", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "SweepStale", "error", err)
	}
}

func (h *LeadHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *LeadHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/inquiries", h.Create)

	router.GET("/api/v1/leads", h.List)
	router.GET("/api/v1/leads/id/:id", h.GetByID)
	router.PATCH("/api/v1/leads/id/:id", h.Update)
	router.DELETE("/api/v1/leads/id/:id", h.Delete)

	router.PUT("/api/v1/leads/id/:id/stage", h.ChangeStage)
	router.PUT("/api/v1/leads/id/:id/assign", h.Assign)
	router.DELETE("/api/v1/leads/id/:id/assign", h.Unassign)
	router.POST("/api/v1/leads/assign-bulk", h.BulkAssign)

	router.POST("/api/v1/leads/id/:id/comments", h.AddComment)
	router.POST("/api/v1/leads/id/:id/refresh-timer", h.RefreshTimer)
	router.GET("/api/v1/leads/id/:id/activities", h.Activities)

	router.POST("/api/v1/leads/id/:id/travelers", h.AddTraveler)
	router.DELETE("/api/v1/leads/id/:id/travelers/:ref", h.RemoveTraveler)
	router.GET("/api/v1/leads/id/:id/documents/status", h.DocumentStatus)

	router.POST("/api/v1/leads/sweep-stale", h.SweepStale)
}
