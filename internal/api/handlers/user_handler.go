package handlers

import (
	"fmt"
	"net/http"

	"github.com/etuitionbd/etuition-be/internal/models"
	"github.com/etuitionbd/etuition-be/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// Save records a login, inserting the user the first time they are seen.
func (h *UserHandler) Save(w http.ResponseWriter, r *http.Request) {
	var payload services.LoginInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.service.UpsertOnLogin(r.Context(), payload)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if result.UpsertedID != nil {
		log.Info().Str("email", payload.Email).Msg("Saved new user")
	}
	writeJSON(w, http.StatusOK, result)
}

// GetRole returns the caller's stored role.
func (h *UserHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	role, err := h.service.UserRole(r.Context(), email)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.Role{"role": role})
}

// UpdateProfile changes the caller's own name and image.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	target := pathEmail(r, "email")
	if !sameEmail(email, target) {
		WriteError(w, r, fmt.Errorf("%w: cannot edit another user's profile", services.ErrForbidden))
		return
	}

	var payload services.ProfileInput
	if !decodeJSON(w, r, &payload) {
		return
	}
	result, err := h.service.UpdateProfile(r.Context(), email, payload)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListTutors returns every tutor.
func (h *UserHandler) ListTutors(w http.ResponseWriter, r *http.Request) {
	h.listTutors(w, r, 0)
}

// HomeTutors returns the tutors featured on the home page.
func (h *UserHandler) HomeTutors(w http.ResponseWriter, r *http.Request) {
	h.listTutors(w, r, services.HomeTutors)
}

func (h *UserHandler) listTutors(w http.ResponseWriter, r *http.Request, limit int64) {
	tutors, err := h.service.ListTutors(r.Context(), limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tutors)
}

// ListAll returns every user. Admin only.
func (h *UserHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListAll(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// SetRole assigns a role to a user. Admin only.
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload struct {
		Role models.Role `json:"role"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.service.SetRole(r.Context(), id, payload.Role)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	log.Info().Str("user_id", id).Str("role", string(payload.Role)).Msg("User role changed")
	writeJSON(w, http.StatusOK, result)
}
