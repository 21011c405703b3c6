package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/postfixrelay/psfxmail/internal/backend"
	"github.com/postfixrelay/psfxmail/internal/webmail"
	"github.com/rs/zerolog/log"
)

// notice is the toast payload every error response carries.
type notice struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Fields      []ValidationError `json:"fields,omitempty"`
	Redirect    string            `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeNotice(w http.ResponseWriter, status int, title, description string) {
	writeJSON(w, status, notice{Title: title, Description: description})
}

func writeValidationErrors(w http.ResponseWriter, title string, errs []ValidationError) {
	writeJSON(w, http.StatusBadRequest, notice{Title: title, Description: "Please check the highlighted fields.", Fields: errs})
}

// writeServiceError maps use-case and backend errors to a status and
// notice. fallback is shown when the backend gave no message.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var missing *webmail.MissingFieldsError
	switch {
	case errors.As(err, &missing):
		errs := make([]ValidationError, 0, len(missing.Fields))
		for _, f := range missing.Fields {
			errs = append(errs, ValidationError{Field: f, Message: "required"})
		}
		writeJSON(w, http.StatusBadRequest, notice{
			Title:       "Missing Fields",
			Description: "Please fill all fields before sending.",
			Fields:      errs,
		})
	case errors.Is(err, webmail.ErrNotFound):
		writeNotice(w, http.StatusNotFound, "Not Found", "This message is no longer in the list. Refresh and try again.")
	case errors.Is(err, webmail.ErrInProgress):
		writeNotice(w, http.StatusConflict, "In Progress", "This draft is already being sent.")
	case errors.Is(err, webmail.ErrActionNotAllowed):
		writeNotice(w, http.StatusConflict, "Error", "That action is not available in this folder.")
	case backend.IsUnauthorized(err):
		writeJSON(w, http.StatusUnauthorized, notice{
			Title:       "Session Expired",
			Description: "The mail server no longer accepts this login. Please log in again.",
			Redirect:    "/login",
		})
	default:
		log.Error().Err(err).Msg(fallback)
		desc := backend.Message(err)
		if desc == "" {
			desc = fallback
		}
		writeNotice(w, http.StatusBadGateway, "Error", desc)
	}
}
