// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/apperr"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/auth"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/ics"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/service"
	"github.com/go-chi/chi/v5"
)

// EventHandler holds all HTTP handlers for the calendar API.
type EventHandler struct {
	svc *service.Scheduler
	log *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.Scheduler, log *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps the error taxonomy onto status codes. Server-side
// failures are logged and never echoed to the client.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// authorize checks that the authenticated subject acts on its own events.
func authorize(r *http.Request, ownerID string) error {
	sub, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		return apperr.ErrUnauthorized
	}
	if sub != ownerID {
		return apperr.ErrForbidden
	}
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("event id must be a positive integer")
	}
	return id, nil
}

// parseDate accepts a bare calendar date or a full RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Invalid("date must be YYYY-MM-DD or RFC 3339, got %q", raw)
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events/create
// An empty user_id defaults to the authenticated user.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.EventInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		req.OwnerID, _ = auth.SubjectFromContext(r.Context())
	}
	if err := authorize(r, req.OwnerID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	event, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// EditEvent handles PUT /events/edit
func (h *EventHandler) EditEvent(w http.ResponseWriter, r *http.Request) {
	var req model.EventPatch
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ID <= 0 || strings.TrimSpace(req.OwnerID) == "" {
		writeError(w, http.StatusBadRequest, "missing required fields: id, user_id")
		return
	}
	if err := authorize(r, req.OwnerID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	event, err := h.svc.Edit(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
// Soft-deletes the event and returns its final state.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	event, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if err := authorize(r, event.OwnerID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	deleted, err := h.svc.Remove(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, deleted)
}

// ListByOwner handles GET /events/user/{id}
func (h *EventHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "id")
	if err := authorize(r, ownerID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	events, err := h.svc.ListByOwner(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// ListByDay handles GET /events/daily/{user_id}/{date}
func (h *EventHandler) ListByDay(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "user_id")
	if err := authorize(r, ownerID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	date, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	events, err := h.svc.ListByDay(r.Context(), ownerID, date)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// ListByMonth handles GET /events/monthly/{user_id}/{year}/{month}
// month is 1-indexed.
func (h *EventHandler) ListByMonth(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "user_id")
	if err := authorize(r, ownerID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	year, yErr := strconv.Atoi(chi.URLParam(r, "year"))
	month, mErr := strconv.Atoi(chi.URLParam(r, "month"))
	if yErr != nil || mErr != nil {
		writeError(w, http.StatusBadRequest, "invalid year or month parameters")
		return
	}

	events, err := h.svc.ListByMonth(r.Context(), ownerID, year, month)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// ExportCalendar handles GET /events/user/{id}/calendar.ics
func (h *EventHandler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "id")
	if err := authorize(r, ownerID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	events, err := h.svc.ListByOwner(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	if err := ics.Encode(w, ownerID, events, time.Now()); err != nil {
		h.log.Error("calendar export failed", "owner_id", ownerID, "error", err)
	}
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
