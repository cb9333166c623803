package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/service"
	"github.com/go-chi/chi/v5"
)

// UserHandler serves account creation, login and profile lookups.
type UserHandler struct {
	svc *service.UserService
	log *slog.Logger
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc *service.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// CreateUser handles POST /users/create
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	token, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// GetUser handles GET /users/{id}
// Users may only read their own profile.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := authorize(r, id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	user, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
