package handlers

import (
	"net/http"

	"github.com/etuitionbd/etuition-be/internal/models"
	"github.com/etuitionbd/etuition-be/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// TuitionHandler handles HTTP requests related to tuition listings.
type TuitionHandler struct {
	service services.TuitionServiceProvider
}

// NewTuitionHandler creates a new TuitionHandler.
func NewTuitionHandler(service services.TuitionServiceProvider) *TuitionHandler {
	return &TuitionHandler{service: service}
}

// List handles the public, paginated and searchable listing.
func (h *TuitionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), services.ParseListQuery(r.URL.Query()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Home returns the latest approved listings for the home page.
func (h *TuitionHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, func() ([]models.Tuition, error) {
		return h.service.Latest(r.Context(), services.HomeTuitions)
	})
}

// Get returns a single listing.
func (h *TuitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	tuition, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tuition)
}

// Create posts a new listing for the calling student.
func (h *TuitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	var payload models.TuitionInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.service.Create(r.Context(), email, payload)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Mine returns the calling student's listings.
func (h *TuitionHandler) Mine(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	h.writeList(w, r, func() ([]models.Tuition, error) {
		return h.service.ListByStudent(r.Context(), email)
	})
}

// All returns every listing regardless of status. Admin only.
func (h *TuitionHandler) All(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, func() ([]models.Tuition, error) {
		return h.service.ListAll(r.Context())
	})
}

// Update edits the fields of one of the caller's listings.
func (h *TuitionHandler) Update(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	var patch models.TuitionPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	result, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), email, patch)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Delete removes one of the caller's listings.
func (h *TuitionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	result, err := h.service.Delete(r.Context(), id, email)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	log.Info().Str("tuition_id", id).Str("email", email).Msg("Tuition deleted")
	writeJSON(w, http.StatusOK, result)
}

// SetStatus approves or rejects a listing. Admin only.
func (h *TuitionHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload struct {
		Status models.TuitionStatus `json:"status"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.service.SetStatus(r.Context(), id, payload.Status)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	log.Info().Str("tuition_id", id).Str("status", string(payload.Status)).Msg("Tuition moderated")
	writeJSON(w, http.StatusOK, result)
}

func (h *TuitionHandler) writeList(w http.ResponseWriter, r *http.Request, load func() ([]models.Tuition, error)) {
	tuitions, err := load()
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tuitions)
}
