package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/etuitionbd/etuition-be/internal/auth"
	"github.com/etuitionbd/etuition-be/internal/observability"
	"github.com/etuitionbd/etuition-be/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// statusClientClosedRequest is nginx's non-standard status for a request the
// client abandoned before a response was written.
const statusClientClosedRequest = 499

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
	IncidentID string `json:"incidentId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

// WriteError maps an error from the auth pipeline or the services to a
// status and JSON body. Unexpected errors are logged and reported under an
// incident id; their text is not sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var aerr *auth.Error
	switch {
	case errors.As(err, &aerr) && aerr.Status < http.StatusInternalServerError:
		writeJSON(w, aerr.Status, errorBody{Message: aerr.Message, Error: aerr.Detail})
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Resource not found"})
	case errors.Is(err, services.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Message: err.Error()})
	case errors.Is(err, services.ErrInvalidID),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrDuplicateApplication):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: err.Error()})
	case errors.Is(err, context.Canceled):
		log.Debug().Str("path", r.URL.Path).Msg("Client went away")
		w.WriteHeader(statusClientClosedRequest)
	default:
		incident := uuid.NewString()
		log.Error().Err(err).
			Str("incident_id", incident).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		observability.CaptureErr(err, incident)
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Internal server error", IncidentID: incident})
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body"})
		return false
	}
	return true
}

// callerEmail returns the verified email the auth pipeline stored.
func callerEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		WriteError(w, r, errors.New("handler reached without a verified email"))
		return "", false
	}
	return email, true
}

// pathEmail reads an email path parameter, undoing percent-encoding.
func pathEmail(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if email, err := url.PathUnescape(raw); err == nil {
		return email
	}
	return raw
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
