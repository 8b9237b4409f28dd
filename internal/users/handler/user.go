package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tripdesk/internal/users/service"
	"tripdesk/pkg/auth"
	apperrors "tripdesk/pkg/errors"
	httputil "tripdesk/pkg/http"
	"tripdesk/pkg/logger"
	"tripdesk/pkg/model"
)

type UserHandler struct {
	service service.UserService
	log     *logger.Logger
}

func NewUserHandler(service service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log,
	}
}

func (h *UserHandler) CreateAgent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input service.CreateAgentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, "CreateAgent", apperrors.InvalidInput("Invalid request body"))
		return
	}

	actor, _ := auth.SessionFromContext(r.Context())
	result, err := h.service.CreateAgent(r.Context(), actor, input)
	if err != nil {
		h.writeError(w, "CreateAgent", err)
		return
	}

	if err := httputil.WriteMutation(w, http.StatusCreated, httputil.MutationResponse{
		Success: true,
		Message: "Agent created",
		Warning: result.Warning,
		Data:    result,
	}); err != nil {
		h.log.Error("failed to write mutation response", "handler", "CreateAgent", "error", err)
	}
}

func (h *UserHandler) ListAgents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())
	assignableOnly := r.URL.Query().Get("assignable") == "true"

	agents, err := h.service.ListAgents(r.Context(), actor, assignableOnly)
	if err != nil {
		h.writeError(w, "ListAgents", err)
		return
	}

	if err := httputil.WriteSuccess(w, agents); err != nil {
		h.log.Error("failed to write success response", "handler", "ListAgents", "error", err)
	}
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())

	user, err := h.service.Get(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *UserHandler) SetAgentStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "SetAgentStatus", apperrors.InvalidInput("Invalid request body"))
		return
	}

	actor, _ := auth.SessionFromContext(r.Context())
	if err := h.service.SetAgentStatus(r.Context(), actor, ps.ByName("id"), body.Status); err != nil {
		h.writeError(w, "SetAgentStatus", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *UserHandler) DeleteAgent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())

	if err := h.service.DeleteAgent(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "DeleteAgent", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *UserHandler) AddMember(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var member model.Member
	if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
		h.writeError(w, "AddMember", apperrors.InvalidInput("Invalid request body"))
		return
	}

	actor, _ := auth.SessionFromContext(r.Context())
	saved, err := h.service.AddMember(r.Context(), actor, member)
	if err != nil {
		h.writeError(w, "AddMember", err)
		return
	}

	if err := httputil.WriteCreated(w, saved); err != nil {
		h.log.Error("failed to write created response", "handler", "AddMember", "error", err)
	}
}

func (h *UserHandler) RemoveMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.SessionFromContext(r.Context())

	if err := h.service.RemoveMember(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "RemoveMember", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *UserHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/agents", h.CreateAgent)
	router.GET("/api/v1/agents", h.ListAgents)
	router.PUT("/api/v1/agents/id/:id/status", h.SetAgentStatus)
	router.DELETE("/api/v1/agents/id/:id", h.DeleteAgent)

	router.GET("/api/v1/users/id/:id", h.GetByID)

	router.POST("/api/v1/members", h.AddMember)
	router.DELETE("/api/v1/members/id/:id", h.RemoveMember)
}
