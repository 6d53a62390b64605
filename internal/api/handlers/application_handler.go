package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/etuitionbd/etuition-be/internal/models"
	"github.com/etuitionbd/etuition-be/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ApplicationHandler handles HTTP requests related to tutor applications.
type ApplicationHandler struct {
	service services.ApplicationServiceProvider
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(service services.ApplicationServiceProvider) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// Check reports whether the caller already applied to a tuition.
func (h *ApplicationHandler) Check(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	if !sameEmail(email, pathEmail(r, "email")) {
		WriteError(w, r, fmt.Errorf("%w: can only check your own applications", services.ErrForbidden))
		return
	}

	applied, err := h.service.HasApplied(r.Context(), chi.URLParam(r, "tuitionId"), email)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

// Apply creates an application from the calling tutor.
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	var payload struct {
		TuitionID string `json:"tuitionId"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.service.Apply(r.Context(), email, payload.TuitionID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	log.Info().Str("tuition_id", payload.TuitionID).Str("tutor", email).Msg("Application submitted")
	writeJSON(w, http.StatusCreated, result)
}

// Received lists applications to the calling student's listings.
func (h *ApplicationHandler) Received(w http.ResponseWriter, r *http.Request) {
	h.listForCaller(w, r, h.service.ListReceived)
}

// Mine lists the calling tutor's applications.
func (h *ApplicationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	h.listForCaller(w, r, h.service.ListForTutor)
}

// Ongoing lists the calling tutor's accepted applications.
func (h *ApplicationHandler) Ongoing(w http.ResponseWriter, r *http.Request) {
	h.listForCaller(w, r, h.service.ListOngoingForTutor)
}

// SetStatus accepts or rejects an application to one of the caller's listings.
func (h *ApplicationHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var payload struct {
		Status models.ApplicationStatus `json:"status"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.service.SetStatus(r.Context(), id, email, payload.Status)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ApplicationHandler) listForCaller(w http.ResponseWriter, r *http.Request, load func(ctx context.Context, email string) ([]models.Application, error)) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	apps, err := load(r.Context(), email)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}
